package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
)

// EngagementHandler handles like and watch progress endpoints.
type EngagementHandler struct {
	service *service.EngagementService
}

// NewEngagementHandler creates a new engagement handler.
func NewEngagementHandler(svc *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: svc}
}

// ToggleLike godoc
// @Summary Toggle like
// @Description Like or unlike a content item
// @Tags Engagement
// @Produce json
// @Param type path string true "Content type (video|notice|playlist)"
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /content/{type}/{id}/like [post]
func (h *EngagementHandler) ToggleLike(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.ToggleLike(c.Request.Context(), principal, models.ContentType(c.Param("type")), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

type recordViewRequest struct {
	WatchTime     int     `json:"watch_time"`
	CompletionPct float64 `json:"completion_pct"`
	LastPosition  int     `json:"last_position"`
}

// RecordView godoc
// @Summary Record watch progress
// @Description Upsert the caller's watch progress for a video
// @Tags Engagement
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param payload body recordViewRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/views [post]
func (h *EngagementHandler) RecordView(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req recordViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	view, err := h.service.RecordView(c.Request.Context(), principal, c.Param("id"), service.RecordViewRequest{
		WatchTime:     req.WatchTime,
		CompletionPct: req.CompletionPct,
		LastPosition:  req.LastPosition,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// WatchProgress godoc
// @Summary Get own watch progress
// @Description Return the caller's stored progress for a video
// @Tags Engagement
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id}/views/me [get]
func (h *EngagementHandler) WatchProgress(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.service.WatchProgress(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// ListViews godoc
// @Summary List video views
// @Description List per-student watch progress, owner or admin only
// @Tags Engagement
// @Produce json
// @Param id path string true "Video ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/views [get]
func (h *EngagementHandler) ListViews(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	views, pagination, err := h.service.ListViews(c.Request.Context(), principal, c.Param("id"), pageParamsFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, views, pagination)
}
