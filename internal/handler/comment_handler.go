package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
)

// CommentHandler handles comment endpoints.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// Add godoc
// @Summary Add comment
// @Description Post a comment or a reply on a content item
// @Tags Comments
// @Accept json
// @Produce json
// @Param type path string true "Content type (video|notice|playlist)"
// @Param id path string true "Content ID"
// @Param payload body service.AddCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /content/{type}/{id}/comments [post]
func (h *CommentHandler) Add(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	comment, err := h.service.Add(c.Request.Context(), principal, models.ContentType(c.Param("type")), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// List godoc
// @Summary List comments
// @Description List comments on a content item
// @Tags Comments
// @Produce json
// @Param type path string true "Content type (video|notice|playlist)"
// @Param id path string true "Content ID"
// @Param parent_id query string false "Replies to a specific comment"
// @Param top_level query bool false "Top-level comments only"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /content/{type}/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.CommentFilter{
		ContentType: models.ContentType(c.Param("type")),
		ContentID:   c.Param("id"),
	}
	filter.PageParams = pageParamsFromQuery(c)
	if parentID := c.Query("parent_id"); parentID != "" {
		filter.ParentID = &parentID
	}
	if topLevel := c.Query("top_level"); topLevel != "" {
		if val, err := strconv.ParseBool(topLevel); err == nil {
			filter.TopLevel = val
		}
	}

	comments, pagination, err := h.service.List(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, comments, pagination)
}

// Delete godoc
// @Summary Delete comment
// @Description Delete a comment and its replies, author or admin only
// @Tags Comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ToggleLike godoc
// @Summary Toggle comment like
// @Description Like or unlike a comment
// @Tags Comments
// @Produce json
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /comments/{id}/like [post]
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.ToggleLike(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
