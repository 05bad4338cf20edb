package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mas-api/pkg/response"
)

type attachmentOpener interface {
	Open(token string) (io.ReadCloser, string, error)
}

// AttachmentHandler streams attachments behind signed links.
type AttachmentHandler struct {
	attachments attachmentOpener
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(attachments attachmentOpener) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Download godoc
// @Summary Download an attachment through a signed link
// @Tags Attachments
// @Produce application/pdf
// @Produce image/jpeg
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /attachments/{token} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	body, filename, err := h.attachments.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, body, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", filename),
		"Cache-Control":       "private, no-store",
	})
}
