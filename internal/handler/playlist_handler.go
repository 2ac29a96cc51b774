package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/lecturehub-api/internal/service"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
)

// PlaylistHandler handles playlist endpoints.
type PlaylistHandler struct {
	service *service.PlaylistService
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(svc *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{service: svc}
}

type createPlaylistRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Branch      string `json:"branch" binding:"required"`
	Year        string `json:"year" binding:"required"`
	Published   bool   `json:"published"`
}

// Create godoc
// @Summary Create playlist
// @Description Create a playlist for grouping videos
// @Tags Playlists
// @Accept json
// @Produce json
// @Param payload body createPlaylistRequest true "Playlist payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /playlists [post]
func (h *PlaylistHandler) Create(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req createPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	playlist, err := h.service.Create(c.Request.Context(), principal, service.CreatePlaylistRequest{
		Title:       req.Title,
		Description: req.Description,
		Branch:      req.Branch,
		Year:        req.Year,
		Published:   req.Published,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, playlist)
}

// List godoc
// @Summary List playlists
// @Description List playlists visible to the current principal
// @Tags Playlists
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /playlists [get]
func (h *PlaylistHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	playlists, pagination, err := h.service.List(c.Request.Context(), principal, contentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, playlists, pagination)
}

// Get godoc
// @Summary Get playlist
// @Description Get playlist detail, subject to visibility
// @Tags Playlists
// @Produce json
// @Param id path string true "Playlist ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{id} [get]
func (h *PlaylistHandler) Get(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	playlist, err := h.service.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, playlist, nil)
}

type updatePlaylistRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Branch      *string `json:"branch"`
	Year        *string `json:"year"`
	Published   *bool   `json:"published"`
}

// Update godoc
// @Summary Update playlist
// @Description Update playlist fields, owner or admin only
// @Tags Playlists
// @Accept json
// @Produce json
// @Param id path string true "Playlist ID"
// @Param payload body updatePlaylistRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{id} [patch]
func (h *PlaylistHandler) Update(c *gin.Context) {
	principal := principalFromContext(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req updatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	playlist, err := h.service.Update(c.Request.Context(), principal, c.Param("id"), service.UpdatePlaylistRequest{
		Title:       req.Title,
		Description: req.Description,
		Branch:      req.Branch,
		Year:        req.Year,
		Published:   req.Published,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, playlist, nil)
}

// Delete godoc
// @Summary Delete playlist
// @Description Delete playlist, detaching member videos
// @Tags Playlists
// @Produce json
// @Param id path string true "Playlist ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /playlists/{id} [delete]
func (h *PlaylistHandler) Delete(c *gin.Context) {
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

// GrantAccess godoc
// @Summary Grant special access
// @Description Add a user to the playlist allow-list
// @Tags Playlists
// @Accept json
// @Produce json
// @Param id path string true "Playlist ID"
// @Param payload body accessGrantRequest true "Target user"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /playlists/{id}/access [post]
func (h *PlaylistHandler) GrantAccess(c *gin.Context) {
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
// @Description Remove a user from the playlist allow-list
// @Tags Playlists
// @Produce json
// @Param id path string true "Playlist ID"
// @Param userID path string true "Target user ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /playlists/{id}/access/{userID} [delete]
func (h *PlaylistHandler) RevokeAccess(c *gin.Context) {
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
