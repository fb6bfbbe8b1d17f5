// Package videos implements the video sharing workflow: ownership-checked
// mutations over the repository and the newVideo notification on create.
package videos

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/realtime"
)

const (
	// DefaultLimit is the page size used when the caller does not pass one.
	DefaultLimit = 10
	// MaxLimit caps the page size.
	MaxLimit = 100

	maxFieldLen = 255
)

// Repository persists videos. Implementations return apperr kinds.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Video, error)
	List(ctx context.Context, filter ListFilter, skip, limit int) ([]models.VideoListItem, error)
	Create(ctx context.Context, v *models.Video) error
	Update(ctx context.Context, id uuid.UUID, patch models.VideoPatch) (*models.Video, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Notifier delivers events to connected real-time clients.
type Notifier interface {
	Notify(ctx context.Context, ev realtime.Event) error
}

// ListFilter narrows a listing. The zero value lists every video.
type ListFilter struct {
	SharedBy *uuid.UUID
}

// ListParams is a page request.
type ListParams struct {
	Filter ListFilter
	Skip   int
	Limit  int
}

// CreateInput holds the caller-supplied fields of a new video.
type CreateInput struct {
	Title       string
	Description *string
	VideoURL    string
	ImageURL    string
	Tags        *string
}

// Service runs the video workflow.
type Service struct {
	repo     Repository
	notifier Notifier
	clock    *clock
	logger   *zap.Logger
}

// NewService creates the workflow. notifier may be nil, in which case no
// notifications are sent.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, clock: newClock(time.Now), logger: logger}
}

// Create stores a new video owned by owner and then notifies connected clients.
// The notification is best effort: it runs after the insert is committed and its
// failure never fails Create. A crash between the two loses the event.
func (s *Service) Create(ctx context.Context, in CreateInput, owner models.UserPublic) (*models.Video, error) {
	if owner.ID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	in.Title = strings.TrimSpace(in.Title)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	v := &models.Video{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: optional(in.Description),
		VideoURL:    in.VideoURL,
		ImageURL:    in.ImageURL,
		Tags:        optional(in.Tags),
		SharedBy:    owner.ID,
		SharedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}
	s.logger.Info("video shared", zap.String("video_id", v.ID.String()), zap.String("shared_by", owner.ID.String()))

	if s.notifier != nil {
		// The insert is committed; the caller going away must not cut the fan-out short.
		if err := s.notifier.Notify(context.WithoutCancel(ctx), realtime.NewVideoEvent(*v, owner.Email)); err != nil {
			s.logger.Warn("newVideo notification failed", zap.String("video_id", v.ID.String()), zap.Error(err))
		}
	}
	return v, nil
}

// Get returns the video with id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	return v, nil
}

// List returns a page of videos, most recently shared first.
func (s *Service) List(ctx context.Context, p ListParams) ([]models.VideoListItem, error) {
	if p.Skip < 0 {
		return nil, apperr.Validation("skip must not be negative")
	}
	switch {
	case p.Limit < 0:
		return nil, apperr.Validation("limit must not be negative")
	case p.Limit == 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	items, err := s.repo.List(ctx, p.Filter, p.Skip, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	return items, nil
}

// Update applies patch to the video when callerID owns it. Existence is checked
// before ownership.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch models.VideoPatch, callerID uuid.UUID) (*models.Video, error) {
	v, err := s.owned(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	patch = normalizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return v, nil
	}
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update video %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes the video when callerID owns it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, callerID uuid.UUID) error {
	if _, err := s.owned(ctx, id, callerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete video %s: %w", id, err)
	}
	s.logger.Info("video deleted", zap.String("video_id", id.String()))
	return nil
}

func (s *Service) owned(ctx context.Context, id, callerID uuid.UUID) (*models.Video, error) {
	if callerID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	if v.SharedBy != callerID {
		return nil, fmt.Errorf("%w: not the owner of this video", apperr.ErrForbidden)
	}
	return v, nil
}

func validateCreate(in CreateInput) error {
	switch {
	case in.Title == "":
		return apperr.Validation("title is required")
	case in.VideoURL == "":
		return apperr.Validation("video_url is required")
	case in.ImageURL == "":
		return apperr.Validation("image_url is required")
	}
	return checkLengths(&in.Title, in.Description, &in.VideoURL, &in.ImageURL, in.Tags)
}

// normalizePatch trims every set field. A blank description or tags value becomes
// "" which clears the field, matching what Create stores for blank input.
func normalizePatch(p models.VideoPatch) models.VideoPatch {
	for _, f := range []**string{&p.Title, &p.Description, &p.VideoURL, &p.ImageURL, &p.Tags} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	return p
}

func validatePatch(p models.VideoPatch) error {
	required := []struct {
		name  string
		value *string
	}{{"title", p.Title}, {"video_url", p.VideoURL}, {"image_url", p.ImageURL}}
	for _, f := range required {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return apperr.Validation("%s must not be empty", f.name)
		}
	}
	return checkLengths(p.Title, p.Description, p.VideoURL, p.ImageURL, p.Tags)
}

func checkLengths(fields ...*string) error {
	for _, f := range fields {
		if f != nil && len(*f) > maxFieldLen {
			return apperr.Validation("fields are limited to %d characters", maxFieldLen)
		}
	}
	return nil
}

// optional maps an empty string to nil.
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// clock hands out non-decreasing timestamps so that shared_at follows creation
// order even if the wall clock steps back. Postgres keeps microseconds.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
