package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caresync/portal-api/internal/handler"
	"github.com/caresync/portal-api/internal/middleware"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/service/auth"
	apperrors "github.com/caresync/portal-api/pkg/errors"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the routes that do not require a token.
// Extra middleware (the stricter login rate limiter) applies to the
// whole group.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	group := r.Group("/auth", mw...)
	{
		group.POST("/signup", h.Signup)
		group.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts the routes behind authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	group := r.Group("/auth")
	{
		group.POST("/logout", h.Logout)
		group.GET("/verify", h.Verify)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation(err.Error()))
		return
	}

	resp, err := h.svc.Signup(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(resp))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation(err.Error()))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req, requestMeta(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	h.svc.Logout(c.Request.Context(), claims, requestMeta(c))
	c.JSON(http.StatusOK, handler.NewSuccessResponse("logged out successfully"))
}

func (h *Handler) Verify(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	user, err := h.svc.Verify(c.Request.Context(), claims)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"valid": true,
		"user":  user,
	}))
}

func requestMeta(c *gin.Context) auth.RequestMeta {
	return auth.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
