package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	"github.com/noah-isme/mas-api/internal/service"
	"github.com/noah-isme/mas-api/pkg/response"
)

type masService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateMASRequest, upload *dto.AttachmentUpload) (*models.MAS, error)
	Edit(ctx context.Context, actor *models.JWTClaims, id string, req dto.EditMASRequest, upload *dto.AttachmentUpload) (*models.MAS, error)
	Review(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviewMASRequest) (*models.MAS, error)
	Approve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApprovalMASRequest) (*models.MAS, error)
	Revise(ctx context.Context, actor *models.JWTClaims, id string, req dto.ReviseMASRequest, upload *dto.AttachmentUpload) (*dto.RevisionResult, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*dto.MASDetail, error)
	List(ctx context.Context, actor *models.JWTClaims, query dto.MASListQuery) ([]models.MAS, error)
	History(ctx context.Context, actor *models.JWTClaims, id string) (*dto.MASHistory, error)
	AttachmentLink(ctx context.Context, actor *models.JWTClaims, id string) (*dto.AttachmentLink, error)
}

type historyExporter interface {
	ExportHistory(ctx context.Context, actor *models.JWTClaims, id, format string) (*service.ExportedFile, error)
}

// MASHandler exposes the material approval sheet lifecycle.
type MASHandler struct {
	mas      masService
	exporter historyExporter
}

// NewMASHandler constructs the handler.
func NewMASHandler(mas masService, exporter historyExporter) *MASHandler {
	return &MASHandler{mas: mas, exporter: exporter}
}

// Create godoc
// @Summary Submit a new MAS
// @Tags MAS
// @Accept multipart/form-data
// @Produce json
// @Param project_id formData string true "Project ID"
// @Param building_id formData string true "Building ID"
// @Param service_id formData string true "Service ID"
// @Param item_id formData string true "Item ID"
// @Param make_id formData string true "Make ID or other"
// @Param other_make formData string false "Free text make when make_id is other"
// @Param attachment formData file true "PDF or JPEG, at most 5MB"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mas [post]
func (h *MASHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateMASRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid MAS payload"))
		return
	}
	upload, closeUpload, err := attachmentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	mas, err := h.mas.Create(c.Request.Context(), actor, req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mas)
}

// List godoc
// @Summary List visible MAS rows
// @Tags MAS
// @Produce json
// @Param status query string false "pending, approved, rejected or all"
// @Param latest query bool false "Only latest revisions (default true)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /mas [get]
func (h *MASHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.MASListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}
	rows, err := h.mas.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"count": len(rows)})
}

// Get godoc
// @Summary MAS detail with allowed actions
// @Tags MAS
// @Produce json
// @Param id path string true "MAS row ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mas/{id} [get]
func (h *MASHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.mas.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Edit godoc
// @Summary Edit a pending MAS in place
// @Tags MAS
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "MAS row ID"
// @Param item_id formData string false "Item ID"
// @Param make_id formData string false "Make ID or other"
// @Param other_make formData string false "Free text make"
// @Param attachment formData file false "Replacement attachment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mas/{id} [put]
func (h *MASHandler) Edit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.EditMASRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid MAS payload"))
		return
	}
	upload, closeUpload, err := attachmentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	mas, err := h.mas.Edit(c.Request.Context(), actor, c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mas, nil)
}

// Review godoc
// @Summary Reviewer decision
// @Tags MAS
// @Accept json
// @Produce json
// @Param id path string true "MAS row ID"
// @Param payload body dto.ReviewMASRequest true "approve, reject or comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mas/{id}/review [post]
func (h *MASHandler) Review(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewMASRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid review payload"))
		return
	}
	mas, err := h.mas.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mas, nil)
}

// Approve godoc
// @Summary Approver decision
// @Tags MAS
// @Accept json
// @Produce json
// @Param id path string true "MAS row ID"
// @Param payload body dto.ApprovalMASRequest true "approve or reject"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mas/{id}/approval [post]
func (h *MASHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApprovalMASRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid approval payload"))
		return
	}
	mas, err := h.mas.Approve(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mas, nil)
}

// Revise godoc
// @Summary Submit the next revision
// @Tags MAS
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "MAS row ID"
// @Param item_id formData string false "Item ID within the same service"
// @Param make_id formData string true "Make ID or other"
// @Param other_make formData string false "Free text make"
// @Param attachment formData file true "PDF or JPEG, at most 5MB"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mas/{id}/revisions [post]
func (h *MASHandler) Revise(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviseMASRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid revision payload"))
		return
	}
	upload, closeUpload, err := attachmentFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeUpload()

	result, err := h.mas.Revise(c.Request.Context(), actor, c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	var meta map[string]interface{}
	if result.RedirectedFrom != "" {
		meta = map[string]interface{}{"redirected_from": result.RedirectedFrom}
	}
	response.JSON(c, http.StatusCreated, result, meta)
}

// History godoc
// @Summary Revisions and activity of a chain
// @Tags MAS
// @Produce json
// @Param id path string true "MAS row ID"
// @Success 200 {object} response.Envelope
// @Router /mas/{id}/history [get]
func (h *MASHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	history, err := h.mas.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// ExportHistory godoc
// @Summary Download the chain activity as CSV or PDF
// @Tags MAS
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "MAS row ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /mas/{id}/history/export [get]
func (h *MASHandler) ExportHistory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.exporter.ExportHistory(c.Request.Context(), actor, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// AttachmentLink godoc
// @Summary Short-lived download link for the attachment
// @Tags MAS
// @Produce json
// @Param id path string true "MAS row ID"
// @Success 200 {object} response.Envelope
// @Router /mas/{id}/attachment [get]
func (h *MASHandler) AttachmentLink(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.mas.AttachmentLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
