package realtime

import "github.com/vidshare/backend/internal/models"

// EventNewVideo is the type tag of the notification sent after a video is shared.
const EventNewVideo = "newVideo"

// Event is a notification pushed to every connected client as a JSON text frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewVideoData is the payload of a newVideo event.
type NewVideoData struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	SharedBy    string  `json:"shared_by"`
	ID          string  `json:"id"`
}

// NewVideoEvent builds the newVideo notification for v shared by the given email.
func NewVideoEvent(v models.Video, sharedBy string) Event {
	return Event{
		Type: EventNewVideo,
		Data: NewVideoData{
			Title:       v.Title,
			Description: v.Description,
			SharedBy:    sharedBy,
			ID:          v.ID.String(),
		},
	}
}
