package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/repository/dataset"
	"github.com/mamadbah2/simba/internal/service/insights"
	"github.com/mamadbah2/simba/internal/service/localization"
)

// Discoverer lists the data files available for a city.
type Discoverer interface {
	Discover(ctx context.Context, city string) (dataset.Discovery, error)
}

// DataHandler serves read-only data that does not depend on a session.
type DataHandler struct {
	files       Discoverer
	insights    *insights.Service
	localizer   *localization.Localizer
	defaultCity string
	topN        int
	logger      *zap.Logger
}

// NewDataHandler constructs the HTTP handler adapter.
func NewDataHandler(files Discoverer, insightsSvc *insights.Service, localizer *localization.Localizer, defaultCity string, topN int, logger *zap.Logger) *DataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataHandler{
		files:       files,
		insights:    insightsSvc,
		localizer:   localizer,
		defaultCity: defaultCity,
		topN:        topN,
		logger:      logger,
	}
}

// Files lists the data files for a city together with the index freshness.
func (h *DataHandler) Files(c *gin.Context) {
	city := c.Query("city")
	d, err := h.files.Discover(c.Request.Context(), city)
	if err != nil {
		h.dataFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files":       d.Files,
		"count":       len(d.Files),
		"tier":        d.Tier,
		"lastUpdated": d.LastUpdated,
	})
}

// Insights returns the ranked insights of a city in the requested language.
func (h *DataHandler) Insights(c *gin.Context) {
	city := c.DefaultQuery("city", h.defaultCity)

	top := h.topN
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a positive integer"})
			return
		}
		top = n
	}

	state, err := h.localizer.SetLanguage(c.Request.Context(), c.DefaultQuery("lang", h.localizer.DefaultLanguage()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
		return
	}

	list, err := h.insights.Insights(c.Request.Context(), city, h.localizer.Bind(state.Language), top)
	if err != nil {
		h.dataFailed(c, err)
		return
	}
	if list == nil {
		list = []models.Insight{}
	}

	c.JSON(http.StatusOK, gin.H{"city": city, "language": state.Language, "insights": list})
}

// Yearly returns the yearly chart series and its summary.
func (h *DataHandler) Yearly(c *gin.Context) {
	city := c.DefaultQuery("city", h.defaultCity)
	locality := c.DefaultQuery("locality", insights.AllLocalities)

	points, summary, err := h.insights.Series(c.Request.Context(), city, locality)
	if err != nil {
		h.dataFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"city":     city,
		"locality": locality,
		"series":   points,
		"summary":  summary,
	})
}

// Translations returns every key of a language pack, flattened.
func (h *DataHandler) Translations(c *gin.Context) {
	lang := c.Param("lang")
	flat, err := h.localizer.Flatten(c.Request.Context(), lang)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unsupported language"})
		return
	}
	c.JSON(http.StatusOK, flat)
}

func (h *DataHandler) dataFailed(c *gin.Context, err error) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("data request failed", zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load data"})
}
