package practitioner

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/handler"
	"github.com/caresync/portal-api/internal/middleware"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/service/availability"
	"github.com/caresync/portal-api/internal/service/presence"
	apperrors "github.com/caresync/portal-api/pkg/errors"
)

type Handler struct {
	availability *availability.Service
	presence     *presence.Service
}

func NewHandler(availabilitySvc *availability.Service, presenceSvc *presence.Service) *Handler {
	return &Handler{
		availability: availabilitySvc,
		presence:     presenceSvc,
	}
}

// RegisterRoutes mounts the practitioner routes. The roster is readable
// by any authenticated role; everything else is practitioner-only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	group := r.Group("/practitioner")
	group.GET("/all", h.Roster)

	own := group.Group("")
	own.Use(auth.RequireRole(model.RolePractitioner))
	{
		own.GET("/availability", h.ListAvailability)
		own.POST("/availability", h.UpsertAvailability)
		own.DELETE("/availability/:id", h.DeleteAvailability)
		own.POST("/heartbeat", h.Heartbeat)
	}
}

func (h *Handler) ListAvailability(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	slots, err := h.availability.List(c.Request.Context(), claims.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"availability": slots}))
}

func (h *Handler) UpsertAvailability(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, apperrors.Validation(err.Error()))
		return
	}

	slot, err := h.availability.Upsert(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(slot))
}

func (h *Handler) DeleteAvailability(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, apperrors.Validation("invalid slot id"))
		return
	}

	if err := h.availability.Delete(c.Request.Context(), slotID, claims.UserID); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("slot deleted"))
}

// Heartbeat refreshes the caller's presence window. Always 200; a
// storage failure here only delays freshness until the next beat.
func (h *Handler) Heartbeat(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		handler.Error(c, apperrors.Unauthorized(nil))
		return
	}

	h.presence.MarkActive(c.Request.Context(), claims.UserID, c.ClientIP(), c.Request.UserAgent())
	c.JSON(http.StatusOK, handler.NewSuccessResponse("heartbeat received"))
}

func (h *Handler) Roster(c *gin.Context) {
	roster, err := h.availability.Roster(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"practitioners": roster}))
}
