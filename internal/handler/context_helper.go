package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/middleware"
	"github.com/noah-isme/mas-api/internal/models"
	appErrors "github.com/noah-isme/mas-api/pkg/errors"
	"github.com/noah-isme/mas-api/pkg/response"
)

const attachmentField = "attachment"

// actorFromContext returns the authenticated actor or writes a 401.
func actorFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// attachmentFromForm opens the multipart attachment. A missing file yields a
// nil upload; the caller must invoke the returned closer.
func attachmentFromForm(c *gin.Context) (*dto.AttachmentUpload, func(), error) {
	header, err := c.FormFile(attachmentField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*dto.AttachmentUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Internal(err, "failed to read attachment")
	}
	return &dto.AttachmentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, func() { _ = file.Close() }, nil
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
