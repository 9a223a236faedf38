// Package transport exposes the runtime's admin/introspection HTTP surface
// (SPEC_FULL.md §4.7): health, statistics, and accumulated attribution
// credits. This is a side channel for operators, not part of the render
// loop — the facade is never blocked by or aware of these handlers.
//
// Grounded on routers/GdalRouters.go's gin.Engine route-group wiring and
// views/StatisticsView.go's Success/Message/Data JSON envelope.
package transport

import (
	"net/http"

	"github.com/GrainArc/vtscore/mapfacade"
	"github.com/GrainArc/vtscore/telemetry"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every handler in this package replies with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Server wires a Facade and the process-wide statistics block into a gin
// router.
type Server struct {
	facade *mapfacade.Facade
}

func NewServer(facade *mapfacade.Facade) *Server {
	return &Server{facade: facade}
}

// Register attaches this package's routes under r's top-level group,
// mirroring GDALRouters(r *gin.Engine)'s shape.
func (s *Server) Register(r *gin.Engine) {
	group := r.Group("/vts")
	group.GET("/healthz", s.healthz)
	group.GET("/stats", s.stats)
	group.GET("/credits", s.credits)
}

func (s *Server) healthz(c *gin.Context) {
	ramBytes, gpuBytes, count, ok := s.facade.Stats()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Message: "no map configuration loaded"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"ready":          ok,
		"ram_bytes":      ramBytes,
		"gpu_bytes":      gpuBytes,
		"resource_count": count,
	}})
}

func (s *Server) stats(c *gin.Context) {
	snap := telemetry.Global.Snapshot()
	if ramBytes, gpuBytes, count, ok := s.facade.Stats(); ok {
		snap.RAMBytes = ramBytes
		snap.GPUBytes = gpuBytes
		snap.ResourceCount = count
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: snap})
}

func (s *Server) credits(c *gin.Context) {
	ids := s.facade.LastCreditIds()
	c.JSON(http.StatusOK, Response{Success: true, Data: ids})
}
