package presence

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caresync/portal-api/pkg/event"
	"github.com/caresync/portal-api/pkg/metrics"
)

const keepAliveInterval = 25 * time.Second

// Handler serves the presence event stream. Clients connect once and
// receive a practitioner:status event whenever any practitioner's
// presence changes.
type Handler struct {
	bus     *event.Bus
	metrics *metrics.Metrics
}

func NewHandler(bus *event.Bus, m *metrics.Metrics) *Handler {
	return &Handler{bus: bus, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/presence/stream", h.Stream)
}

// Stream is a server-sent events endpoint. Delivery is best-effort: a
// client that cannot keep up misses events and is expected to refetch
// roster state.
func (h *Handler) Stream(c *gin.Context) {
	sub, cancel := h.bus.Subscribe()
	defer cancel()

	h.metrics.StreamSubscribers.Inc()
	defer h.metrics.StreamSubscribers.Dec()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case status, ok := <-sub:
			if !ok {
				return false
			}
			h.metrics.PresenceBroadcasts.Inc()
			c.SSEvent("practitioner:status", status)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
