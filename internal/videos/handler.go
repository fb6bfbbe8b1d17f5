package videos

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/pkg/response"
)

// CreateRequest is the body for POST /api/videos. video_url and image_url are
// storage keys returned by the upload endpoints.
type CreateRequest struct {
	Title       string  `json:"title" binding:"required,max=255"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	VideoURL    string  `json:"video_url" binding:"required,max=255"`
	ImageURL    string  `json:"image_url" binding:"required,max=255"`
	Tags        *string `json:"tags" binding:"omitempty,max=255"`
}

// UpdateRequest is the body for PATCH /api/videos/:id. Absent fields are left as is.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
	ImageURL    *string `json:"image_url"`
	Tags        *string `json:"tags"`
}

// VideoResponse is a video as returned by the API, with storage keys rendered as URLs.
type VideoResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	VideoURL    string    `json:"video_url"`
	ImageURL    string    `json:"image_url"`
	Tags        *string   `json:"tags"`
	SharedBy    string    `json:"shared_by"`
	Likes       int       `json:"likes"`
	Dislikes    int       `json:"dislikes"`
	SharedAt    time.Time `json:"shared_at"`
}

// Handler handles video HTTP endpoints.
type Handler struct {
	svc *Service
	url func(key string) string
}

// NewHandler creates a video handler. urlFor renders storage keys as public URLs;
// nil returns keys unchanged.
func NewHandler(svc *Service, urlFor func(key string) string) *Handler {
	if urlFor == nil {
		urlFor = func(key string) string { return key }
	}
	return &Handler{svc: svc, url: urlFor}
}

// Register mounts the video routes. auth guards the mutating endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("", auth, h.Create)
	rg.PATCH("/:id", auth, h.Update)
	rg.DELETE("/:id", auth, h.Delete)
}

// Create handles POST /api/videos.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	v, err := h.svc.Create(c.Request.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	}, user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.render(*v))
}

// Get handles GET /api/videos/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.render(*v))
}

// List handles GET /api/videos?skip=&limit=&shared_by=.
func (h *Handler) List(c *gin.Context) {
	var p ListParams
	var err error
	if p.Skip, err = queryInt(c, "skip"); err != nil {
		response.BadRequest(c, "invalid skip")
		return
	}
	if p.Limit, err = queryInt(c, "limit"); err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}
	if s := c.Query("shared_by"); s != "" {
		owner, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid shared_by")
			return
		}
		p.Filter.SharedBy = &owner
	}
	items, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]VideoResponse, 0, len(items))
	for _, it := range items {
		out = append(out, h.renderItem(it))
	}
	response.OK(c, out)
}

// Update handles PATCH /api/videos/:id (owner only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	v, err := h.svc.Update(c.Request.Context(), id, models.VideoPatch{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	}, user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.render(*v))
}

// Delete handles DELETE /api/videos/:id (owner only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, user.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// render reports the owner by id; listings report it by email.
func (h *Handler) render(v models.Video) VideoResponse {
	return VideoResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoURL:    h.url(v.VideoURL),
		ImageURL:    h.url(v.ImageURL),
		Tags:        v.Tags,
		SharedBy:    v.SharedBy.String(),
		Likes:       v.Likes,
		Dislikes:    v.Dislikes,
		SharedAt:    v.SharedAt,
	}
}

func (h *Handler) renderItem(it models.VideoListItem) VideoResponse {
	return VideoResponse{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		VideoURL:    h.url(it.VideoURL),
		ImageURL:    h.url(it.ImageURL),
		Tags:        it.Tags,
		SharedBy:    it.SharedBy,
		Likes:       it.Likes,
		Dislikes:    it.Dislikes,
		SharedAt:    it.SharedAt,
	}
}

func queryInt(c *gin.Context, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
