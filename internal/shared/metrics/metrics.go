package metrics

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	pollsTotal         atomic.Uint64
	pollFailuresTotal  atomic.Uint64
	alertsSentTotal    atomic.Uint64
	alertFailuresTotal atomic.Uint64
	reportsTotal       atomic.Uint64

	alertJobsReceived      atomic.Uint64
	alertJobsCompleted     atomic.Uint64
	alertJobsFailed        atomic.Uint64
	alertJobsUnrecoverable atomic.Uint64

	apiRequestsTotal atomic.Uint64
	apiFailuresTotal atomic.Uint64

	apiDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})

	usageMu      sync.Mutex
	usagePercent = map[string]uint64{}
)

// IncPoll increments the successful usage poll counter.
func IncPoll() {
	pollsTotal.Add(1)
}

// IncPollFailed increments the failed usage poll counter.
func IncPollFailed() {
	pollFailuresTotal.Add(1)
}

// IncAlertSent increments the delivered alert counter.
func IncAlertSent() {
	alertsSentTotal.Add(1)
}

// IncAlertFailed increments the undelivered alert counter.
func IncAlertFailed() {
	alertFailuresTotal.Add(1)
}

// IncReportArchived increments the archived report counter.
func IncReportArchived() {
	reportsTotal.Add(1)
}

// IncAlertJobsReceived increments the consumed alert message counter.
func IncAlertJobsReceived() {
	alertJobsReceived.Add(1)
}

// IncAlertJobsCompleted increments the processed alert message counter.
func IncAlertJobsCompleted() {
	alertJobsCompleted.Add(1)
}

// IncAlertJobsFailed increments the alert messages left for redelivery.
func IncAlertJobsFailed() {
	alertJobsFailed.Add(1)
}

// IncAlertJobsDeletedUnrecoverable increments the dropped alert message counter.
func IncAlertJobsDeletedUnrecoverable() {
	alertJobsUnrecoverable.Add(1)
}

// ObserveAPIRequest records one Kimola API call.
func ObserveAPIRequest(d time.Duration, failed bool) {
	apiRequestsTotal.Add(1)
	if failed {
		apiFailuresTotal.Add(1)
	}
	ms := float64(d) / float64(time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	apiDuration.Observe(ms)
}

// SetUsagePercentage stores the latest usage percentage for a resource.
func SetUsagePercentage(resource string, pct float64) {
	usageMu.Lock()
	usagePercent[resource] = math.Float64bits(pct)
	usageMu.Unlock()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "usage_polls_total", "Total successful usage polls", pollsTotal.Load())
	writeCounter(&buf, "usage_poll_failures_total", "Total failed usage polls", pollFailuresTotal.Load())
	writeCounter(&buf, "usage_alerts_sent_total", "Total usage alerts delivered", alertsSentTotal.Load())
	writeCounter(&buf, "usage_alert_failures_total", "Total usage alerts that could not be delivered", alertFailuresTotal.Load())
	writeCounter(&buf, "reports_archived_total", "Total usage reports archived", reportsTotal.Load())
	writeCounter(&buf, "alert_jobs_received_total", "Total alert messages received by the worker", alertJobsReceived.Load())
	writeCounter(&buf, "alert_jobs_completed_total", "Total alert messages processed", alertJobsCompleted.Load())
	writeCounter(&buf, "alert_jobs_failed_total", "Total alert messages that failed and will be retried", alertJobsFailed.Load())
	writeCounter(&buf, "alert_jobs_deleted_unrecoverable_total", "Total alert messages deleted as unrecoverable", alertJobsUnrecoverable.Load())
	writeCounter(&buf, "kimola_requests_total", "Total Kimola API requests", apiRequestsTotal.Load())
	writeCounter(&buf, "kimola_request_failures_total", "Total failed Kimola API requests", apiFailuresTotal.Load())
	writeHistogram(&buf, "kimola_request_duration_ms", "Kimola API request duration in milliseconds", apiDuration.Snapshot())
	writeUsageGauge(&buf)
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func writeUsageGauge(buf *bytes.Buffer) {
	usageMu.Lock()
	resources := make([]string, 0, len(usagePercent))
	for r := range usagePercent {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	values := make([]float64, len(resources))
	for i, r := range resources {
		values[i] = math.Float64frombits(usagePercent[r])
	}
	usageMu.Unlock()

	const name = "kimola_usage_percentage"
	fmt.Fprintf(buf, "# HELP %s Latest subscription usage percentage per resource\n", name)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", name)
	for i, r := range resources {
		fmt.Fprintf(buf, "%s{resource=%q} %s\n", name, r, formatFloat(values[i]))
	}
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
