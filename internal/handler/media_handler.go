package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
	"github.com/lecturehub/lecturehub-api/pkg/response"
	"github.com/lecturehub/lecturehub-api/pkg/storage"
)

// MediaHandler serves stored media objects behind signed URLs. The token
// itself carries the authorization; no session is required.
type MediaHandler struct {
	store  *storage.MediaStore
	signer *storage.SignedURLSigner
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(store *storage.MediaStore, signer *storage.SignedURLSigner) *MediaHandler {
	return &MediaHandler{store: store, signer: signer}
}

// Serve godoc
// @Summary Serve media object
// @Description Stream a media object referenced by a signed token
// @Tags Media
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{token} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	_, key, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired media token"))
		return
	}

	file, err := h.store.Open(key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "media object not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to stat media object"))
		return
	}

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
