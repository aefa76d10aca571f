package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomcast-server/internal/config"
	"github.com/vovakirdan/roomcast-server/internal/core"
	"github.com/vovakirdan/roomcast-server/internal/store"
)

// NewServer builds an HTTP server with the REST API and the WebSocket
// endpoint.
func NewServer(registry *core.Registry, history store.Log, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	api := NewAPIHandlers(registry, history, logger)
	router.GET("/health", api.Health)
	router.GET("/api/rooms", api.ListRooms)
	router.POST("/api/rooms", api.CreateRoom)
	router.GET("/api/rooms/:name/messages", api.ListMessages)
	router.GET("/api/stats", api.Stats)

	// The WebSocket handler hijacks the connection after the 101 response
	// is written; gin's response writer refuses hijacks at that point, so
	// /ws hangs off a plain mux beside the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(registry, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
