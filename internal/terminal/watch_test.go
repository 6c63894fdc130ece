package terminal_test

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/relay"
	"github.com/iliyamo/cinema-seat-booking/internal/terminal"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDescribe(t *testing.T) {
	ev := model.SeatOccupancyEvent{ShowtimeID: 7, RoomID: 2, SeatNumbers: []string{"A1", "A2"}}
	assert.Equal(t, "showtime 7, room 2: A1, A2 booked", terminal.Describe(ev))
}

func TestWatcher_PrintsUpdatesForItsShowtime(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := relay.NewHub(relay.Config{}, logger)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Serve(ctx, ln) }()

	out := &syncBuffer{}
	w := &terminal.Watcher{Addr: ln.Addr().String(), ShowtimeID: 7, Out: out, Logger: logger}
	watchDone := make(chan error, 1)
	go func() { watchDone <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	sender, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer sender.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(sender, "SEAT_UPDATE:8:1:Z9\nnot an update\nSEAT_UPDATE:7:2:A1,A2\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "showtime 7, room 2: A1, A2 booked")
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), "showtime 8")

	cancel()
	select {
	case err := <-watchDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_StopsWhileRelayIsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	logger, _ := test.NewNullLogger()
	w := &terminal.Watcher{Addr: addr, Out: io.Discard, Logger: logger, MaxBackoff: 50 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx))
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded, "Run returned before the deadline")
}

func TestWatcher_KeepsWaitingWhenBackoffExceedsDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	logger, _ := test.NewNullLogger()
	// the retry interval will exceed the remaining time almost at once
	w := &terminal.Watcher{Addr: addr, Out: io.Discard, Logger: logger, MaxBackoff: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, ctx.Err())
}
