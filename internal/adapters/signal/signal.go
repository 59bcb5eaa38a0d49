package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meetowl/signaling/internal/app"
	"github.com/meetowl/signaling/internal/config"
	"github.com/meetowl/signaling/internal/core"
	"github.com/meetowl/signaling/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller upgrades HTTP requests to signaling WebSockets and feeds
// decoded messages into the relay.
type Controller struct {
	Relay    *app.Relay
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewController(relay *app.Relay, cfg *config.Config) *Controller {
	return &Controller{
		Relay: relay,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(cfg.AllowedOrigins),
		},
	}
}

// originChecker allows everything when no origins are configured, which is
// the dev default. Browsers without an Origin header pass either way.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the connection pumps. Each
// upgrade mints a fresh connection id; identities arrive later with join-room.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("new WS connection")

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Relay.Connect(id, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn)
}
