package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caresync/portal-api/internal/handler"
	"github.com/caresync/portal-api/internal/middleware"
	"github.com/caresync/portal-api/internal/model"
	"github.com/caresync/portal-api/internal/service/audit"
	apperrors "github.com/caresync/portal-api/pkg/errors"
)

type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	group := r.Group("/audit")
	group.Use(auth.RequireRole(model.RoleAdmin))
	{
		group.GET("/logs", h.ListLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	var filter model.AuditLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handler.Error(c, apperrors.Validation(err.Error()))
		return
	}
	filter.Normalize()

	if filter.ActorID != "" {
		if _, err := uuid.Parse(filter.ActorID); err != nil {
			handler.Error(c, apperrors.Validation("invalid actor_id"))
			return
		}
	}

	logs, total, err := h.svc.ListWithPagination(c.Request.Context(), &filter)
	if err != nil {
		handler.Error(c, err)
		return
	}

	if claims, ok := middleware.ClaimsFromContext(c); ok {
		h.svc.Log(c.Request.Context(), audit.Entry{
			ActorID:   &claims.UserID,
			ActorRole: claims.Role,
			Action:    model.AuditActionAuditList,
			Resource:  "audit",
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Outcome:   model.AuditOutcomeSuccess,
		})
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"logs":      logs,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	}))
}
