package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	"github.com/vovakirdan/wirechat-presence/internal/service/rooms"
)

// NewServer builds the backend HTTP server: auth, room REST and the
// room event RPCs used by tracking agents.
func NewServer(authService *auth.Service, roomService *rooms.Service, cfg config.ServerConfig, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(authService, roomService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all backend routes on a fresh gin engine.
func NewRouter(authService *auth.Service, roomService *rooms.Service, cfg config.ServerConfig, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(roomService, logger)
	eventHandlers := NewEventHandlers(roomService, logger)
	requireAuth := AuthMiddleware(authService, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("", requireAuth)
	authed.POST("/rooms", roomHandlers.CreateRoom)
	authed.GET("/rooms", roomHandlers.ListRooms)
	authed.GET("/rooms/:id", roomHandlers.GetRoom)
	authed.GET("/rooms/:id/activity", roomHandlers.ListActivity)

	limiter := newRateLimiter(cfg.ActivityRateLimit, time.Minute)

	events := router.Group("/event/room/:id", requireAuth)
	events.POST("/join", eventHandlers.Join)
	events.POST("/leave", eventHandlers.Leave)
	events.POST("/activity", RateLimitMiddleware(limiter, logger), eventHandlers.Activity)
	events.POST("/pin", eventHandlers.Pin)
	events.POST("/close", eventHandlers.Close)
	events.POST("/duplicate", eventHandlers.Duplicate)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
