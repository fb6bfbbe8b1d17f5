// Package uploads accepts media files over multipart forms and hands them to the
// blob store. The returned keys are what clients submit as video_url and image_url.
package uploads

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vidshare/backend/pkg/response"
	"github.com/vidshare/backend/pkg/storage"
)

const (
	// MaxVideoBytes bounds a single video upload.
	MaxVideoBytes = 500 << 20
	// MaxImageBytes bounds a single thumbnail upload.
	MaxImageBytes = 10 << 20

	formField = "file"

	// multipartSlack covers form boundaries and headers around the file part.
	multipartSlack = 1 << 20
)

var (
	videoExtensions = map[string]bool{".mp4": true, ".avi": true, ".mov": true, ".wmv": true}
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}
)

// BlobStore stores uploaded objects and returns their key.
type BlobStore interface {
	Put(ctx context.Context, folder, filename string, body io.Reader, size int64) (string, error)
}

// Result is the body returned for a stored upload. URL is the storage key.
type Result struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Handler handles upload endpoints.
type Handler struct {
	store    BlobStore
	maxVideo int64
	maxImage int64
	logger   *zap.Logger
}

// NewHandler creates an upload handler.
func NewHandler(store BlobStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, maxVideo: MaxVideoBytes, maxImage: MaxImageBytes, logger: logger}
}

// Register mounts the upload routes behind the given middleware.
func (h *Handler) Register(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("", mw...)
	g.POST("/video", h.Video)
	g.POST("/image", h.Image)
}

// Video handles POST /api/uploads/video.
func (h *Handler) Video(c *gin.Context) {
	h.upload(c, storage.FolderVideos, videoExtensions, h.maxVideo, "Video uploaded successfully")
}

// Image handles POST /api/uploads/image.
func (h *Handler) Image(c *gin.Context) {
	h.upload(c, storage.FolderImages, imageExtensions, h.maxImage, "Image uploaded successfully")
}

func (h *Handler) upload(c *gin.Context, folder string, allowed map[string]bool, maxBytes int64, msg string) {
	limit := maxBytes + multipartSlack
	if c.Request.ContentLength > limit {
		response.PayloadTooLarge(c, "file too large")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	fh, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "file too large")
			return
		}
		response.BadRequest(c, "file is required")
		return
	}
	ext := strings.ToLower(path.Ext(fh.Filename))
	if !allowed[ext] {
		response.BadRequest(c, "unsupported file type: "+allowedList(allowed))
		return
	}
	if fh.Size > maxBytes {
		response.PayloadTooLarge(c, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	key, err := h.store.Put(c.Request.Context(), folder, fh.Filename, f, fh.Size)
	if err != nil {
		h.logger.Error("upload failed", zap.String("folder", folder), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, Result{Message: msg, URL: key})
}

func allowedList(allowed map[string]bool) string {
	// Fixed order keeps the message stable.
	var out []string
	for _, ext := range []string{".mp4", ".avi", ".mov", ".wmv", ".png", ".jpg", ".jpeg", ".gif"} {
		if allowed[ext] {
			out = append(out, ext)
		}
	}
	return strings.Join(out, ", ")
}
