package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	webhookReceivedTotal   atomic.Uint64
	webhookDuplicateTotal  atomic.Uint64
	webhookRejectedTotal   atomic.Uint64
	tokensIssuedTotal      atomic.Uint64
	tokensRedeemedTotal    atomic.Uint64
	transfersCreatedTotal  atomic.Uint64
	transfersDeferredTotal atomic.Uint64
	transfersDrainedTotal  atomic.Uint64

	settlementDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
)

// IncWebhookReceived increments the received-webhook counter.
func IncWebhookReceived() {
	webhookReceivedTotal.Add(1)
}

// IncWebhookDuplicate increments the duplicate-delivery counter.
func IncWebhookDuplicate() {
	webhookDuplicateTotal.Add(1)
}

// IncWebhookRejected increments the signature-rejection counter.
func IncWebhookRejected() {
	webhookRejectedTotal.Add(1)
}

// IncTokenIssued increments the download-token issuance counter.
func IncTokenIssued() {
	tokensIssuedTotal.Add(1)
}

// IncTokenRedeemed increments the download-token redemption counter.
func IncTokenRedeemed() {
	tokensRedeemedTotal.Add(1)
}

// IncTransferCreated increments the immediate-transfer counter.
func IncTransferCreated() {
	transfersCreatedTotal.Add(1)
}

// IncTransferDeferred increments the deferred-transfer counter.
func IncTransferDeferred() {
	transfersDeferredTotal.Add(1)
}

// IncTransferDrained increments the drained-from-ledger counter.
func IncTransferDrained() {
	transfersDrainedTotal.Add(1)
}

// ObserveSettlementDurationMs records a settlement duration in milliseconds.
func ObserveSettlementDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	settlementDuration.Observe(value)
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
	writeCounter(&buf, "webhook_received_total", "Total webhook deliveries accepted", webhookReceivedTotal.Load())
	writeCounter(&buf, "webhook_duplicate_total", "Total duplicate webhook deliveries skipped", webhookDuplicateTotal.Load())
	writeCounter(&buf, "webhook_rejected_total", "Total webhook deliveries rejected on signature", webhookRejectedTotal.Load())
	writeCounter(&buf, "download_tokens_issued_total", "Total download tokens issued", tokensIssuedTotal.Load())
	writeCounter(&buf, "download_tokens_redeemed_total", "Total download tokens redeemed", tokensRedeemedTotal.Load())
	writeCounter(&buf, "transfers_created_total", "Total immediate seller transfers created", transfersCreatedTotal.Load())
	writeCounter(&buf, "transfers_deferred_total", "Total transfers deferred to the pending ledger", transfersDeferredTotal.Load())
	writeCounter(&buf, "transfers_drained_total", "Total pending transfers drained successfully", transfersDrainedTotal.Load())
	writeHistogram(&buf, "settlement_duration_ms", "Settlement duration in milliseconds", settlementDuration.Snapshot())
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
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
