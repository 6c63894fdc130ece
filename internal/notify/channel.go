package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the lifecycle position of a Channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var (
	// ErrNotConnected is returned by Send when the channel is not
	// connected.  The line is dropped.
	ErrNotConnected = errors.New("channel not connected")
	// ErrInvalidLine rejects payloads that would break newline framing.
	ErrInvalidLine = errors.New("line must not contain a newline")
)

// ConnectionError reports a failed dial.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connecting to %s: %v", e.Addr, e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

// Handler receives inbound lines without their newline, in arrival order,
// on the channel's receive goroutine.
type Handler func(line string)

// ErrorObserver is told about failures that have no synchronous caller:
// dial errors, read errors and dropped sends.
type ErrorObserver func(err error)

// DialFunc opens the underlying connection.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithHandler sets the inbound line handler.
func WithHandler(h Handler) ChannelOption { return func(c *Channel) { c.handler = h } }

// WithErrorObserver sets the observer for asynchronous failures.
func WithErrorObserver(o ErrorObserver) ChannelOption { return func(c *Channel) { c.observe = o } }

// WithDialTimeout bounds Connect.
func WithDialTimeout(d time.Duration) ChannelOption { return func(c *Channel) { c.dialTimeout = d } }

// WithWriteTimeout bounds each Send.
func WithWriteTimeout(d time.Duration) ChannelOption { return func(c *Channel) { c.writeTimeout = d } }

// WithDialer replaces net.Dialer, mostly for tests.
func WithDialer(d DialFunc) ChannelOption { return func(c *Channel) { c.dial = d } }

// WithLogger sets the logger used for channel diagnostics.
func WithLogger(l logrus.FieldLogger) ChannelOption { return func(c *Channel) { c.logger = l } }

type sendRequest struct {
	line   string
	result chan error
}

// Channel is one line-oriented TCP connection to a fixed address.  A
// single goroutine owns the socket: it dials, writes every line handed
// to it by Send and closes the socket when the channel ends.  A second
// goroutine reads inbound lines for the handler.  A Channel is used once;
// after it has disconnected, open a new one.
type Channel struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	handler      Handler
	observe      ErrorObserver
	dial         DialFunc
	logger       logrus.FieldLogger

	state     atomic.Int32
	started   atomic.Bool
	sends     chan sendRequest
	stop      chan struct{}
	stopOnce  sync.Once
	connected chan struct{}
	done      chan struct{}
	err       error // set by the owner goroutine before done is closed
}

// NewChannel prepares a disconnected channel to addr.
func NewChannel(addr string, opts ...ChannelOption) *Channel {
	c := &Channel{
		addr:         addr,
		dialTimeout:  5 * time.Second,
		writeTimeout: 5 * time.Second,
		sends:        make(chan sendRequest),
		stop:         make(chan struct{}),
		connected:    make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		d := &net.Dialer{}
		c.dial = d.DialContext
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	c.logger = c.logger.WithField("addr", addr)
	return c
}

// Addr is the remote address.
func (c *Channel) Addr() string { return c.addr }

// Connect starts dialing on a background goroutine and returns at once.
// Failure is reported to the error observer and leaves the channel
// disconnected.  Calls after the first, or after Stop, do nothing.
func (c *Channel) Connect(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.state.Store(int32(StateConnecting))
	go c.run(ctx)
}

// WaitConnected blocks until the channel is connected, has ended or ctx
// is done.
func (c *Channel) WaitConnected(ctx context.Context) error {
	select {
	case <-c.connected:
		return nil
	case <-c.done:
		if c.err != nil {
			return c.err
		}
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected is closed once the connection is established.
func (c *Channel) Connected() <-chan struct{} { return c.connected }

// Done is closed when the channel has released its connection.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the channel, if any.  It is only
// meaningful after Done is closed.
func (c *Channel) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// State reports the current lifecycle state.
func (c *Channel) State() State {
	if c.stopped() {
		return StateDisconnected
	}
	return State(c.state.Load())
}

// IsConnected reports whether Send would currently be accepted.
func (c *Channel) IsConnected() bool { return c.State() == StateConnected }

// Send writes line followed by a newline.  It waits for the owning
// goroutine to complete the write.  When the channel is not connected the
// line is dropped, ErrNotConnected is reported to the observer and
// returned.
func (c *Channel) Send(ctx context.Context, line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return ErrInvalidLine
	}
	if !c.IsConnected() {
		return c.notConnected()
	}
	req := sendRequest{line: line, result: make(chan error, 1)}
	select {
	case c.sends <- req:
	case <-c.stop:
		return c.notConnected()
	case <-c.done:
		return c.notConnected()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop disconnects the channel.  It is idempotent, never blocks and may be
// called from any goroutine, including the handler.  Use Done to wait for
// the socket to be released.
func (c *Channel) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		if c.started.CompareAndSwap(false, true) {
			// never connected: nothing owns the done channel
			c.state.Store(int32(StateDisconnected))
			close(c.done)
		}
	})
}

func (c *Channel) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// run owns the socket for the channel's whole life.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer c.state.Store(int32(StateDisconnected))

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-dialCtx.Done():
		}
	}()
	conn, err := c.dial(dialCtx, "tcp", c.addr)
	cancel()
	if err != nil {
		if c.stopped() {
			return
		}
		c.err = &ConnectionError{Addr: c.addr, Err: err}
		c.report(c.err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.WithError(err).Debug("closing connection")
		}
	}()

	if c.stopped() {
		return
	}
	c.state.Store(int32(StateConnected))
	close(c.connected)
	c.logger.Debug("channel connected")

	received := make(chan error, 1)
	go c.receive(conn, received)

	for {
		select {
		case req := <-c.sends:
			req.result <- c.write(conn, req.line)
		case err := <-received:
			if err != nil {
				c.err = fmt.Errorf("reading from %s: %w", c.addr, err)
				c.report(c.err)
			} else {
				c.logger.Debug("peer closed connection")
			}
			return
		case <-c.stop:
			return
		case <-ctx.Done():
			c.err = ctx.Err()
			return
		}
	}
}

// receive reads lines until the stream ends or the socket is closed.
func (c *Channel) receive(conn net.Conn, done chan<- error) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if c.handler != nil {
			c.handler(strings.TrimSuffix(scanner.Text(), "\r"))
		}
	}
	done <- scanner.Err()
}

func (c *Channel) write(conn net.Conn, line string) error {
	if c.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		err = fmt.Errorf("writing to %s: %w", c.addr, err)
		c.report(err)
		return err
	}
	return nil
}

func (c *Channel) notConnected() error {
	c.report(ErrNotConnected)
	return ErrNotConnected
}

func (c *Channel) report(err error) {
	c.logger.WithError(err).Debug("channel error")
	if c.observe != nil {
		c.observe(err)
	}
}
