package auth

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/pkg/response"
)

// CredentialsRequest is the body for POST /api/users/login and POST /api/users.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateRequest is the body for PATCH /api/users/:id.
type UpdateRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
}

// Handler handles user HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a user handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the user routes. limit guards login; auth guards everything
// except login and registration.
func (h *Handler) Register(rg *gin.RouterGroup, auth, limit gin.HandlerFunc) {
	rg.POST("/login", limit, h.Login)
	rg.POST("", limit, h.Create)
	rg.GET("", auth, h.List)
	rg.GET("/me", auth, h.Me)
	rg.GET("/:id", auth, h.Get)
	rg.PATCH("/:id", auth, h.Update)
	rg.DELETE("/:id", auth, h.Delete)
}

// Login handles POST /api/users/login.
func (h *Handler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tok, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tok)
}

// Create handles POST /api/users.
func (h *Handler) Create(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, u)
}

// Me handles GET /api/users/me.
func (h *Handler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	response.OK(c, u)
}

// Get handles GET /api/users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// List handles GET /api/users?search=&page=&limit=.
func (h *Handler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		response.BadRequest(c, "invalid page")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}
	out, err := h.svc.List(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Update handles PATCH /api/users/:id (self only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	u, err := h.svc.Update(c.Request.Context(), id, UserUpdate{Email: req.Email, Password: req.Password}, caller.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Delete handles DELETE /api/users/:id (self only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, caller.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
