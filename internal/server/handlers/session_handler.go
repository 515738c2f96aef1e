package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/domain/models"
	"github.com/mamadbah2/simba/internal/service/export"
	"github.com/mamadbah2/simba/internal/service/filter"
	"github.com/mamadbah2/simba/internal/service/localization"
	"github.com/mamadbah2/simba/internal/service/session"
)

// SessionHeader carries the client's session id in both directions.
const SessionHeader = "X-Session-ID"

const sessionKey = "session"

type selectCityRequest struct {
	City string `json:"city" binding:"required"`
}

type selectPeriodRequest struct {
	Year string `json:"year" binding:"required"`
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

// SessionHandler exposes the per-client dashboard state.
type SessionHandler struct {
	sessions  *session.Manager
	localizer *localization.Localizer
	sheets    *export.SheetsExporter
	now       func() time.Time
	logger    *zap.Logger
}

// NewSessionHandler constructs the HTTP handler adapter. sheets may be nil
// when Sheets export is not configured.
func NewSessionHandler(sessions *session.Manager, localizer *localization.Localizer, sheets *export.SheetsExporter, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		sessions:  sessions,
		localizer: localizer,
		sheets:    sheets,
		now:       time.Now,
		logger:    logger,
	}
}

// Attach resolves the session from the request header, creating one when
// needed, and echoes its id in the response.
func (h *SessionHandler) Attach(c *gin.Context) {
	s := h.sessions.Get(c.GetHeader(SessionHeader))
	c.Header(SessionHeader, s.ID)
	c.Set(sessionKey, s)
	c.Next()
}

// Info returns the dataset summary.
func (h *SessionHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Info())
}

// SelectCity discovers the city's periods and loads the most recent one.
func (h *SessionHandler) SelectCity(c *gin.Context) {
	var req selectCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid city payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := current(c)
	ps, err := s.SelectCity(c.Request.Context(), req.City)
	if err != nil {
		h.loadFailed(c, s, err)
		return
	}

	if ps == nil {
		ps = []models.Period{}
	}
	c.JSON(http.StatusOK, gin.H{"periods": ps, "info": s.Info()})
}

// SelectPeriod loads the dataset for the requested year.
func (h *SessionHandler) SelectPeriod(c *gin.Context) {
	var req selectPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid period payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s := current(c)
	info, err := s.SelectPeriod(c.Request.Context(), req.Year, true)
	if err != nil {
		h.loadFailed(c, s, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Records returns the filtered view. Passing facet or value re-applies the filter.
func (h *SessionHandler) Records(c *gin.Context) {
	s := current(c)

	view := s.View()
	facetName, hasFacet := c.GetQuery("facet")
	value, hasValue := c.GetQuery("value")
	if hasFacet || hasValue {
		facet, err := filter.ParseFacet(facetName)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if view, err = s.ApplyFilter(facet, value); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": h.localizer.T(s.Language(), "app.noDataLoaded", nil)})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"facet":   view.Facet,
		"value":   view.Value,
		"count":   view.Count(),
		"showing": h.localizer.T(s.Language(), "app.showingRecords", map[string]any{"count": view.Count()}),
		"records": view.Records,
	})
}

// Facets lists the selectable values of a facet.
func (h *SessionHandler) Facets(c *gin.Context) {
	facet, err := filter.ParseFacet(c.Query("facet"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	values := current(c).FacetValues(facet)
	if values == nil {
		values = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"facet": facet, "values": values})
}

// ExportCSV downloads the filtered view as CSV.
func (h *SessionHandler) ExportCSV(c *gin.Context) {
	s := current(c)

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.View()); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			c.JSON(http.StatusNotFound, gin.H{"error": h.localizer.T(s.Language(), "app.noDataExport", nil)})
			return
		}
		h.logger.Error("csv export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(h.now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportSheets appends the filtered view to the configured spreadsheet.
func (h *SessionHandler) ExportSheets(c *gin.Context) {
	if h.sheets == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sheets export is not configured"})
		return
	}

	s := current(c)
	n, err := h.sheets.Export(c.Request.Context(), s.View())
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			c.JSON(http.StatusNotFound, gin.H{"error": h.localizer.T(s.Language(), "app.noDataExport", nil)})
			return
		}
		h.logger.Error("sheets export failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to export to sheets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exported": n})
}

// SetLanguage switches the session language and returns the state to render.
func (h *SessionHandler) SetLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	state, err := current(c).SetLanguage(c.Request.Context(), req.Language)
	if err != nil {
		h.logger.Warn("language change rejected", zap.String("language", req.Language), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// Reset clears the session.
func (h *SessionHandler) Reset(c *gin.Context) {
	current(c).Reset()
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) loadFailed(c *gin.Context, s *session.Session, err error) {
	var loadErr *models.LoadError
	switch {
	case errors.Is(err, session.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrUnknownPeriod):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &loadErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": h.localizer.T(s.Language(), "app.loadError", map[string]any{"file": loadErr.Filename}),
		})
	default:
		h.logger.Error("session load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load data"})
	}
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
