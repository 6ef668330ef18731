package mosaic

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gekko3d/mosaic/physics"
)

const debugWriteTimeout = time.Second

// WorldSource is anything that can hand out copies of the simulation world.
type WorldSource interface {
	World() *Future[physics.WorldView]
}

// DebugMessage is one frame of the debug feed.
type DebugMessage struct {
	Seq   uint64            `json:"seq"`
	Time  time.Time         `json:"time"`
	World physics.WorldView `json:"world"`
}

// DebugFeed streams world copies to websocket clients. It lets a viewer
// outside the process draw the collision shapes without touching the worker.
type DebugFeed struct {
	source   WorldSource
	interval time.Duration
	log      Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*feedClient
	seq     uint64
}

// feedClient serializes writes to one connection. gorilla allows a single
// concurrent writer per conn.
type feedClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *feedClient) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(debugWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *feedClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func NewDebugFeed(source WorldSource, interval time.Duration, log Logger) *DebugFeed {
	return &DebugFeed{
		source:   source,
		interval: interval,
		log:      orNop(log),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*feedClient),
	}
}

func (f *DebugFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warnf("debug feed: upgrade: %v", err)
		return
	}

	f.mu.Lock()
	f.clients[conn] = &feedClient{conn: conn}
	n := len(f.clients)
	f.mu.Unlock()
	f.log.Debugf("debug feed: client %s connected (%d total)", r.RemoteAddr, n)

	// Clients don't send anything; reading only notices when they leave.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				f.drop(conn)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (f *DebugFeed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Run publishes the world every interval until ctx is done.
func (f *DebugFeed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	defer f.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if f.Clients() == 0 {
				continue
			}
			view, err := f.source.World().Wait(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				f.log.Warnf("debug feed: world: %v", err)
				continue
			}
			f.Publish(view)
		}
	}
}

// Publish sends view to every client. It is safe to call concurrently.
// Clients that fail to take it are disconnected.
func (f *DebugFeed) Publish(view physics.WorldView) {
	f.mu.Lock()
	f.seq++
	msg := DebugMessage{Seq: f.seq, Time: time.Now(), World: view}
	clients := make([]*feedClient, 0, len(f.clients))
	for _, c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteJSON(msg); err != nil {
			f.log.Debugf("debug feed: dropping client: %v", err)
			f.drop(c.conn)
		}
	}
}

func (f *DebugFeed) drop(c *websocket.Conn) {
	f.mu.Lock()
	client, ok := f.clients[c]
	delete(f.clients, c)
	f.mu.Unlock()
	if ok {
		_ = client.Close()
	}
}

func (f *DebugFeed) closeAll() {
	f.mu.Lock()
	clients := f.clients
	f.clients = make(map[*websocket.Conn]*feedClient)
	f.mu.Unlock()
	for _, c := range clients {
		_ = c.Close()
	}
}
