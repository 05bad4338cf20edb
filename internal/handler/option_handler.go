package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mas-api/internal/dto"
	"github.com/noah-isme/mas-api/internal/models"
	"github.com/noah-isme/mas-api/pkg/response"
)

type optionService interface {
	Buildings(ctx context.Context, actor *models.JWTClaims, projectID string) ([]models.Option, error)
	Services(ctx context.Context, actor *models.JWTClaims, projectID string) ([]models.Option, error)
	Items(ctx context.Context, actor *models.JWTClaims, projectID, serviceID string) ([]models.Option, error)
	Makes(ctx context.Context, itemID string) ([]models.Option, error)
}

// OptionHandler serves the vendor form lookups.
type OptionHandler struct {
	options optionService
}

// NewOptionHandler constructs the handler.
func NewOptionHandler(options optionService) *OptionHandler {
	return &OptionHandler{options: options}
}

// Buildings godoc
// @Summary Buildings the vendor may submit for
// @Tags Options
// @Produce json
// @Param project query string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /options/buildings [get]
func (h *OptionHandler) Buildings(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor *models.JWTClaims, q dto.OptionQuery) ([]models.Option, error) {
		return h.options.Buildings(ctx, actor, q.ProjectID)
	})
}

// Services godoc
// @Summary Services the vendor may submit for
// @Tags Options
// @Produce json
// @Param project query string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /options/services [get]
func (h *OptionHandler) Services(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor *models.JWTClaims, q dto.OptionQuery) ([]models.Option, error) {
		return h.options.Services(ctx, actor, q.ProjectID)
	})
}

// Items godoc
// @Summary Items of a service without a submitted MAS
// @Tags Options
// @Produce json
// @Param project query string true "Project ID"
// @Param service query string true "Service ID"
// @Success 200 {object} response.Envelope
// @Router /options/items [get]
func (h *OptionHandler) Items(c *gin.Context) {
	h.serve(c, func(ctx context.Context, actor *models.JWTClaims, q dto.OptionQuery) ([]models.Option, error) {
		return h.options.Items(ctx, actor, q.ProjectID, q.ServiceID)
	})
}

// Makes godoc
// @Summary Makes of an item followed by Other
// @Tags Options
// @Produce json
// @Param item query string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /options/makes [get]
func (h *OptionHandler) Makes(c *gin.Context) {
	h.serve(c, func(ctx context.Context, _ *models.JWTClaims, q dto.OptionQuery) ([]models.Option, error) {
		return h.options.Makes(ctx, q.ItemID)
	})
}

func (h *OptionHandler) serve(c *gin.Context, load func(context.Context, *models.JWTClaims, dto.OptionQuery) ([]models.Option, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.OptionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid query parameters"))
		return
	}
	options, err := load(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}
