package usage

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/shared/server/respond"
)

// Handler exposes usage endpoints.
type Handler struct {
	Svc    *Service
	Poller *Poller
}

// NewHandler constructs a Handler. A nil poller disables POST /usage/poll.
func NewHandler(svc *Service, poller *Poller) *Handler {
	return &Handler{Svc: svc, Poller: poller}
}

// RegisterRoutes attaches read-only usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage/latest", h.getLatest)
	rg.GET("/usage/history", h.getHistory)
}

// RegisterOperatorRoutes attaches routes that call the Kimola API.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage/poll", h.poll)
}

type snapshotResponse struct {
	Snapshot
	Breaches []Breach `json:"breaches"`
}

func (h *Handler) present(s Snapshot) snapshotResponse {
	breaches := h.Svc.Breaches(s)
	if breaches == nil {
		breaches = []Breach{}
	}
	return snapshotResponse{Snapshot: s, Breaches: breaches}
}

func (h *Handler) getLatest(c *gin.Context) {
	snap, err := h.Svc.Latest(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoSnapshots):
			respond.Error(c, http.StatusNotFound, "not_found", "no usage recorded yet", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		}
		return
	}
	respond.OK(c, h.present(snap))
}

func (h *Handler) getHistory(c *gin.Context) {
	since, err := parseSince(c.Query("since"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_since", "since must be RFC3339 or YYYY-MM-DD", nil)
		return
	}
	limit := DefaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxHistoryLimit {
			respond.Error(c, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and "+strconv.Itoa(MaxHistoryLimit), nil)
			return
		}
		limit = n
	}

	snaps, err := h.Svc.History(c.Request.Context(), since, limit)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list usage", nil)
		}
		return
	}
	items := make([]snapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, h.present(s))
	}
	respond.OK(c, gin.H{
		"items":     items,
		"count":     len(items),
		"threshold": h.Svc.Threshold(),
	})
}

func (h *Handler) poll(c *gin.Context) {
	if h.Poller == nil {
		respond.Error(c, http.StatusServiceUnavailable, "poller_disabled", "usage polling is not configured", nil)
		return
	}
	snap, err := h.Poller.PollOnce(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrRecordFailed) {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record usage", nil)
			return
		}
		respond.Upstream(c, err)
		return
	}
	respond.Created(c, h.present(snap))
}

func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}
