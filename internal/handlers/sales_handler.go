package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/errors"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/middleware"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/models"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/services"
	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
)

// StateLoader reads the persisted pipeline state.
type StateLoader interface {
	Load() (*state.State, error)
}

// SalesHandler handles read-only queries over the consolidated dataset.
type SalesHandler struct {
	service services.SalesService
	states  StateLoader
}

// NewSalesHandler creates a new SalesHandler instance.
func NewSalesHandler(service services.SalesService, states StateLoader) *SalesHandler {
	return &SalesHandler{
		service: service,
		states:  states,
	}
}

// ListSalesRequest represents the query parameters for the sales listing.
type ListSalesRequest struct {
	County   string  `form:"county"`
	Year     int     `form:"year" binding:"omitempty,gte=2010,lte=2100"`
	MinPrice float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice float64 `form:"max_price" binding:"omitempty,gte=0"`
	Limit    int     `form:"limit" binding:"omitempty,gte=1,lte=1000"`
}

// ListSalesResponse represents the response for the sales listing.
type ListSalesResponse struct {
	Sales []models.Sale `json:"sales"`
	Count int           `json:"count"`
}

// StatusResponse wraps the persisted pipeline state.
type StatusResponse struct {
	State *state.State `json:"state"`
}

// Summary handles GET /api/v1/summary.
// Returns aggregate statistics over the consolidated dataset.
func (h *SalesHandler) Summary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			apierrors.NoData(c, "No consolidated dataset yet; run the pipeline first")
			return
		}
		apierrors.InternalServerError(c, "Failed to compute dataset summary", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Status handles GET /api/v1/status.
// Returns the pipeline state recorded by the last successful run.
func (h *SalesHandler) Status(c *gin.Context) {
	st, err := h.states.Load()
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load pipeline state", err)
		return
	}
	if st == nil {
		apierrors.NoData(c, "No pipeline run recorded yet")
		return
	}

	c.JSON(http.StatusOK, StatusResponse{State: st})
}

// List handles GET /api/v1/sales.
// Returns sales filtered by county, year and price range.
func (h *SalesHandler) List(c *gin.Context) {
	var req ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing sales listing", map[string]interface{}{
			"county": req.County,
			"year":   req.Year,
			"limit":  req.Limit,
		})
	}

	sales, err := h.service.ListSales(c.Request.Context(), services.SalesFilter{
		County:   req.County,
		Year:     req.Year,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Limit:    req.Limit,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			apierrors.NoData(c, "No consolidated dataset yet; run the pipeline first")
			return
		}
		if errors.Is(err, services.ErrInvalidLimit) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to query sales", err)
		return
	}

	c.JSON(http.StatusOK, ListSalesResponse{
		Sales: sales,
		Count: len(sales),
	})
}
