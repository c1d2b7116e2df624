package host

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/petervdpas/treebridge/internal/proto"
	"github.com/petervdpas/treebridge/internal/shell"
	"github.com/petervdpas/treebridge/internal/util"
)

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	activitySize = 200
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 65536,
	// The shell page may be opened from an embedded webview.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	addr     string
	registry *Registry
	activity *activityLog

	mu  sync.Mutex
	ln  net.Listener
	srv *http.Server
}

func NewServer(addr string, registry *Registry) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		activity: newActivityLog(activitySize),
	}
}

// Handler serves the shell page, the websocket endpoint and status routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", shell.Handler())
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	// ?errors=1 keeps only failed requests.
	mux.HandleFunc("/activity.json", func(w http.ResponseWriter, r *http.Request) {
		list := s.activity.entries()
		if r.URL.Query().Get("errors") != "" {
			list = s.activity.errorsOnly()
		}
		if list == nil {
			list = []Activity{}
		}
		w.Header().Set("content-type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	})
	return mux
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", s.addr)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = srv
	s.mu.Unlock()

	// Stop server when ctx ends
	go func() {
		<-ctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), util.ShortTimeout)
		defer cancel()
		_ = srv.Shutdown(shctx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server error: %v", err)
		}
	}()

	log.Infof("serving on %s", s.URL())
	return nil
}

// URL is the http base URL, using the bound address once started.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return "http://" + s.ln.Addr().String()
	}
	return "http://" + s.addr
}

// Activity returns recently handled messages, oldest first.
func (s *Server) Activity() []Activity {
	return s.activity.entries()
}

type wsConn struct {
	id   string
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *wsConn) write(kind int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	c := &wsConn{id: uuid.NewString(), conn: conn}
	defer conn.Close()
	log.Debugf("conn %s: connected from %s", c.id, r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Shutdown does not touch hijacked connections.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	go c.keepAlive(ctx)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("conn %s: read: %v", c.id, err)
			}
			log.Debugf("conn %s: closed", c.id)
			return
		}

		var env proto.Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			log.Warnf("conn %s: bad frame: %v", c.id, err)
			continue
		}
		out := s.registry.Dispatch(ctx, env)
		s.record(c.id, env, out)

		b, err := json.Marshal(out)
		if err != nil {
			log.Warnf("conn %s: encode reply: %v", c.id, err)
			continue
		}
		if err := c.write(websocket.TextMessage, b); err != nil {
			log.Debugf("conn %s: write: %v", c.id, err)
			return
		}
	}
}

func (c *wsConn) keepAlive(ctx context.Context) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) record(conn string, env proto.Envelope, out proto.ReplyEnvelope) {
	s.activity.add(activityFor(conn, env, out, time.Now().UnixMilli()))
}
