package transport

import (
	"net/http"
	"time"

	"github.com/GrainArc/vtscore/logging"
	"github.com/GrainArc/vtscore/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterWS attaches the live-statistics websocket endpoint, pushing one
// Snapshot per second to each connected operator dashboard until the client
// disconnects. This is strictly an outbound side-channel: nothing it
// receives (if anything) feeds back into the render loop (spec.md §9's
// pull-only discipline).
//
// Grounded on GdalView/ClipView.go's upgrader.Upgrade + ws.WriteJSON
// progress-push pattern, generalized from a one-shot task's progress
// stream into a steady 1Hz ticker push.
func (s *Server) RegisterWS(r *gin.Engine) {
	r.GET("/vts/ws/stats", s.statsWS)
}

func (s *Server) statsWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Log.WithError(err).Warn("transport: stats websocket upgrade failed")
		return
	}
	defer ws.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Drain and discard inbound frames on its own goroutine; the first read
	// error (the peer closing) closes `closed` and ends the push loop. The
	// handler otherwise never reads from ws.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			snap := telemetry.Global.Snapshot()
			if ramBytes, gpuBytes, count, ok := s.facade.Stats(); ok {
				snap.RAMBytes = ramBytes
				snap.GPUBytes = gpuBytes
				snap.ResourceCount = count
			}
			if err := ws.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}
