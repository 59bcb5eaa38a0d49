package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/adapters/signal"
	"github.com/meetowl/signaling/internal/app"
	"github.com/meetowl/signaling/internal/config"
	"github.com/meetowl/signaling/internal/domain"
)

// ClientTokenMiddleware tags every browser with a stable cookie token.
// The token identifies a client across reconnects in the logs; it is not
// the connection id, which is minted per WebSocket upgrade.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// GET /api/rooms — list live rooms with member counts
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": relay.Rooms()})
	})

	// POST /api/rooms — mint a room id for a new live meeting. The room
	// itself comes into being on the first join.
	api.POST("/rooms", func(c *gin.Context) {
		roomID := uuid.NewString()
		c.JSON(http.StatusCreated, gin.H{
			"roomId":  roomID,
			"joinUrl": "/live-meeting/" + roomID,
		})
	})

	// GET /api/rooms/:id — current members of one room
	api.GET("/rooms/:id", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		participants := relay.RoomParticipants(roomID)
		c.JSON(http.StatusOK, gin.H{
			"roomId":       roomID,
			"memberCount":  len(participants),
			"participants": participants,
		})
	})

	ctrl := signal.NewController(relay, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}
