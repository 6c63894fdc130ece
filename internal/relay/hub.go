// Package relay runs the fan-out hub that booking terminals listen on:
// every line a client sends is re-broadcast to all other clients.
package relay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config tunes per-client buffering.
type Config struct {
	// QueueSize is the number of lines buffered per client.  A client
	// whose buffer fills is disconnected.
	QueueSize    int
	WriteTimeout time.Duration
}

// Hub tracks connected clients and forwards lines between them.
type Hub struct {
	cfg    Config
	logger logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

type client struct {
	id       string
	conn     net.Conn
	outbound chan string
	gone     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.gone)
		_ = c.conn.Close()
	})
}

// NewHub builds an empty hub.
func NewHub(cfg Config, logger logrus.FieldLogger) *Hub {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger.WithField("component", "relay"),
		clients: make(map[string]*client),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve accepts clients on ln until ctx is done.  It closes ln and every
// client connection before returning.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		_ = ln.Close()
		h.closeAll()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			c := h.add(conn)
			if c == nil {
				return nil
			}
			g.Go(func() error {
				h.handle(c)
				return nil
			})
		}
	})
	h.logger.WithField("addr", ln.Addr().String()).Info("relay listening")
	return g.Wait()
}

// Broadcast queues line for every client except the one with id from.
func (h *Hub) Broadcast(from, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		if id == from {
			continue
		}
		select {
		case c.outbound <- line:
		default:
			h.logger.WithField("client", id).Warn("client too slow, disconnecting")
			delete(h.clients, id)
			c.close()
		}
	}
}

// add registers conn.  After shutdown has begun it closes conn and
// returns nil.
func (h *Hub) add(conn net.Conn) *client {
	c := &client{
		id:       uuid.NewString(),
		conn:     conn,
		outbound: make(chan string, h.cfg.QueueSize),
		gone:     make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.WithFields(logrus.Fields{"client": c.id, "remote": conn.RemoteAddr().String()}).Debug("client connected")
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}

// handle reads from c until it disconnects while a second goroutine
// writes its outbound queue.
func (h *Hub) handle(c *client) {
	defer h.remove(c)
	go h.write(c)

	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		h.Broadcast(c.id, line)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		h.logger.WithError(err).WithField("client", c.id).Debug("read failed")
	}
	h.logger.WithField("client", c.id).Debug("client disconnected")
}

func (h *Hub) write(c *client) {
	for {
		select {
		case <-c.gone:
			return
		case line := <-c.outbound:
			if err := c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				c.close()
				return
			}
			if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
				h.logger.WithError(err).WithField("client", c.id).Debug("write failed")
				c.close()
				return
			}
		}
	}
}
