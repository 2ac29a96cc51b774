package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
)

// NoticeHandler handles announcement endpoints.
type NoticeHandler struct {
	service *service.NoticeService
}

// NewNoticeHandler creates a new notice handler.
func NewNoticeHandler(svc *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{service: svc}
}

// Create godoc
// @Summary Post notice
// @Description Create an announcement, optionally with an attachment
// @Tags Notices
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param body formData string true "Body"
// @Param branch formData string true "Branch scope"
// @Param year formData string true "Year scope"
// @Param publish formData bool false "Publish immediately"
// @Param attachment formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices [post]
func (h *NoticeHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	req := service.CreateNoticeRequest{
		Title:  c.PostForm("title"),
		Body:   c.PostForm("body"),
		Branch: c.PostForm("branch"),
		Year:   c.PostForm("year"),
	}
	if publish, err := strconv.ParseBool(c.DefaultPostForm("publish", "false")); err == nil {
		req.Publish = publish
	}

	if file, header, err := c.Request.FormFile("attachment"); err == nil {
		defer file.Close()
		req.Attachment = file
		req.AttachmentName = header.Filename
	}

	notice, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, notice)
}

// List godoc
// @Summary List notices
// @Description List notices visible to the current principal
// @Tags Notices
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notices, pagination, err := h.service.List(c.Request.Context(), principal, contentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notices, pagination)
}

// Get godoc
// @Summary Get notice
// @Description Get notice detail, subject to visibility
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [get]
func (h *NoticeHandler) Get(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notice, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notice, nil)
}

type updateNoticeRequest struct {
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	Branch *string `json:"branch"`
	Year   *string `json:"year"`
}

// Update godoc
// @Summary Update notice
// @Description Update notice fields, owner or admin only
// @Tags Notices
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body updateNoticeRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [patch]
func (h *NoticeHandler) Update(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	notice, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), service.UpdateNoticeRequest{
		Title:  req.Title,
		Body:   req.Body,
		Branch: req.Branch,
		Year:   req.Year,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notice, nil)
}

// Delete godoc
// @Summary Delete notice
// @Description Delete notice and its attachment, owner or admin only
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
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

// Publish godoc
// @Summary Publish notice
// @Description Make the notice visible and notify the cohort
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices/{id}/publish [post]
func (h *NoticeHandler) Publish(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notice, err := h.service.Publish(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notice, nil)
}

// GrantAccess godoc
// @Summary Grant special access
// @Description Add a user to the notice allow-list
// @Tags Notices
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body accessGrantRequest true "Target user"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices/{id}/access [post]
func (h *NoticeHandler) GrantAccess(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req accessGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user_id required"))
		return
	}

	if err := h.service.GrantAccess(c.Request.Context(), principal, c.Param("id"), req.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RevokeAccess godoc
// @Summary Revoke special access
// @Description Remove a user from the notice allow-list
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Param userID path string true "Target user ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices/{id}/access/{userID} [delete]
func (h *NoticeHandler) RevokeAccess(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RevokeAccess(c.Request.Context(), principal, c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
