package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/models"
	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
	"github.com/lecturehub/lecturehub-api/pkg/storage"
)

// VideoHandler handles lecture video endpoints.
type VideoHandler struct {
	service *service.VideoService
	signer  *storage.SignedURLSigner
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(svc *service.VideoService, signer *storage.SignedURLSigner) *VideoHandler {
	return &VideoHandler{service: svc, signer: signer}
}

func contentFilterFromQuery(c *gin.Context) models.ContentFilter {
	var filter models.ContentFilter
	filter.PageParams = pageParamsFromQuery(c)
	filter.OwnerID = c.Query("owner_id")
	filter.PlaylistID = c.Query("playlist_id")
	filter.Search = c.Query("search")
	if published := c.Query("published"); published != "" {
		if val, err := strconv.ParseBool(published); err == nil && val {
			filter.PublishedOnly = true
		}
	}
	return filter
}

// Upload godoc
// @Summary Upload video
// @Description Upload a lecture video as multipart form data
// @Tags Videos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Video file"
// @Param title formData string true "Title"
// @Param branch formData string true "Branch scope"
// @Param year formData string true "Year scope"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos [post]
func (h *VideoHandler) Upload(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "video file required"))
		return
	}
	defer file.Close()

	req := service.UploadVideoRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Branch:      c.PostForm("branch"),
		Year:        c.PostForm("year"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		File:        file,
	}
	if raw := c.PostForm("duration_seconds"); raw != "" {
		if duration, err := strconv.Atoi(raw); err == nil {
			req.DurationSeconds = duration
		}
	}
	if playlistID := c.PostForm("playlist_id"); playlistID != "" {
		req.PlaylistID = &playlistID
	}

	video, err := h.service.Upload(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, video)
}

// List godoc
// @Summary List videos
// @Description List videos visible to the current principal
// @Tags Videos
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Param playlist_id query string false "Playlist filter"
// @Success 200 {object} response.Envelope
// @Router /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	videos, pagination, err := h.service.List(c.Request.Context(), principal, contentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, videos, pagination)
}

// Get godoc
// @Summary Get video
// @Description Get video detail, subject to visibility
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	video, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

type updateVideoRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Branch          *string `json:"branch"`
	Year            *string `json:"year"`
	DurationSeconds *int    `json:"duration_seconds"`
	PlaylistID      *string `json:"playlist_id"`
	ClearPlaylist   bool    `json:"clear_playlist"`
}

// Update godoc
// @Summary Update video
// @Description Update video metadata, owner or admin only
// @Tags Videos
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param payload body updateVideoRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [patch]
func (h *VideoHandler) Update(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	video, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), service.UpdateVideoRequest{
		Title:           req.Title,
		Description:     req.Description,
		Branch:          req.Branch,
		Year:            req.Year,
		DurationSeconds: req.DurationSeconds,
		PlaylistID:      req.PlaylistID,
		ClearPlaylist:   req.ClearPlaylist,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

// Delete godoc
// @Summary Delete video
// @Description Delete video and its stored media, owner or admin only
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [delete]
func (h *VideoHandler) Delete(c *gin.Context) {
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
// @Summary Publish video
// @Description Make the video visible and notify the cohort
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/publish [post]
func (h *VideoHandler) Publish(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	video, err := h.service.Publish(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

// Unpublish godoc
// @Summary Unpublish video
// @Description Hide the video from students again
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/unpublish [post]
func (h *VideoHandler) Unpublish(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	video, err := h.service.Unpublish(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, video, nil)
}

type accessGrantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// GrantAccess godoc
// @Summary Grant special access
// @Description Add a user to the video allow-list
// @Tags Videos
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param payload body accessGrantRequest true "Target user"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id}/access [post]
func (h *VideoHandler) GrantAccess(c *gin.Context) {
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
// @Description Remove a user from the video allow-list
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Param userID path string true "Target user ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/access/{userID} [delete]
func (h *VideoHandler) RevokeAccess(c *gin.Context) {
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

// Stream godoc
// @Summary Get signed stream URL
// @Description Issue a short-lived signed URL for the video media
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id}/stream [get]
func (h *VideoHandler) Stream(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	video, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiresAt, err := h.signer.Generate(video.ID, video.ObjectKey)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign stream url"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"url":        "/media/" + token,
		"expires_at": expiresAt,
	}, nil)
}
