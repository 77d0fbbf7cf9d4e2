package report

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/shared/server/respond"
	"github.com/kimola/kimola-go/internal/shared/storage/object"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
	"github.com/kimola/kimola-go/kimola"
)

// Handler exposes report endpoints.
type Handler struct {
	Source Source
	Store  object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(src Source, store object.ObjectStore) *Handler {
	return &Handler{Source: src, Store: store}
}

// RegisterRoutes attaches read-only report routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reports", h.list)
	rg.GET("/reports/:day/:id", h.get)
}

// RegisterOperatorRoutes attaches routes that call the Kimola API.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.create)
}

type createRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_body", "body must be JSON with optional start and end", nil)
			return
		}
	}
	start, err := ParseDate(req.Start)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_start", "start must be RFC3339 or YYYY-MM-DD", nil)
		return
	}
	end, err := ParseDate(req.End)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_end", "end must be RFC3339 or YYYY-MM-DD", nil)
		return
	}

	ctx := c.Request.Context()
	rep, err := Build(ctx, h.Source, kimola.DateRange{Start: start, End: end})
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			respond.Error(c, http.StatusBadRequest, "invalid_range", err.Error(), nil)
			return
		}
		respond.Upstream(c, err)
		return
	}
	key, err := Archive(ctx, h.Store, rep)
	if err != nil {
		telemetry.Error("report.archive.failed", map[string]any{
			"report_id": rep.ID,
			"error":     err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to archive report", nil)
		return
	}
	telemetry.Info("report.archived", map[string]any{
		"report_id": rep.ID,
		"key":       key,
	})
	respond.Created(c, gin.H{"key": key, "report": rep})
}

func (h *Handler) list(c *gin.Context) {
	day, err := ParseDate(c.Query("date"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", nil)
		return
	}
	keys, err := List(c.Request.Context(), h.Store, day)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list reports", nil)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	respond.OK(c, gin.H{"items": keys, "count": len(keys)})
}

func (h *Handler) get(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("id"), ".json")
	key, err := object.CleanKey(KeyPrefix + "/" + c.Param("day") + "/" + id + ".json")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_key", "invalid report key", nil)
		return
	}
	rep, err := Load(c.Request.Context(), h.Store, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "report not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load report", nil)
		return
	}
	respond.OK(c, rep)
}

// ParseDate accepts RFC3339 timestamps or YYYY-MM-DD days. Blank input is
// the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
