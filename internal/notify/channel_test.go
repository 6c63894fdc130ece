package notify_test

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/notify"
)

type errorLog struct {
	lock sync.Mutex
	errs []error
}

func (l *errorLog) observe(err error) {
	l.lock.Lock()
	l.errs = append(l.errs, err)
	l.lock.Unlock()
}

func (l *errorLog) all() []error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]error(nil), l.errs...)
}

func TestChannel_SendsNewlineTerminatedLines(t *testing.T) {
	ctx := context.Background()
	srv := newLineServer(t)
	ch := notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger))
	assert.Equal(t, notify.StateDisconnected, ch.State())

	ch.Connect(ctx)
	require.NoError(t, ch.WaitConnected(ctx))
	assert.True(t, ch.IsConnected())

	require.NoError(t, ch.Send(ctx, "first"))
	require.NoError(t, ch.Send(ctx, "second"))
	assert.Equal(t, "first", srv.nextLine(t))
	assert.Equal(t, "second", srv.nextLine(t))

	ch.Stop()
	waitClosed(t, ch.Done())
	assert.NoError(t, ch.Err())
}

func TestChannel_SendAfterStopReportsNotConnected(t *testing.T) {
	ctx := context.Background()
	srv := newLineServer(t)
	errs := &errorLog{}
	ch := notify.NewChannel(srv.addr(), notify.WithErrorObserver(errs.observe), notify.WithLogger(nullLogger))
	ch.Connect(ctx)
	require.NoError(t, ch.WaitConnected(ctx))

	ch.Stop()
	ch.Stop()

	assert.False(t, ch.IsConnected())
	assert.ErrorIs(t, ch.Send(ctx, "late"), notify.ErrNotConnected)
	waitClosed(t, ch.Done())
	assert.ErrorIs(t, ch.Send(ctx, "later"), notify.ErrNotConnected)

	got := errs.all()
	require.Len(t, got, 2)
	for _, err := range got {
		assert.ErrorIs(t, err, notify.ErrNotConnected)
	}
}

func TestChannel_SendBeforeConnectIsDropped(t *testing.T) {
	ch := notify.NewChannel(closedAddr(t), notify.WithLogger(nullLogger))
	assert.ErrorIs(t, ch.Send(context.Background(), "hello"), notify.ErrNotConnected)

	ch.Stop()
	waitClosed(t, ch.Done())
	ch.Connect(context.Background())
	assert.Equal(t, notify.StateDisconnected, ch.State(), "stopped channels do not reconnect")
}

func TestChannel_RejectsEmbeddedNewlines(t *testing.T) {
	ch := notify.NewChannel(closedAddr(t), notify.WithLogger(nullLogger))
	assert.ErrorIs(t, ch.Send(context.Background(), "a\nb"), notify.ErrInvalidLine)
}

func TestChannel_ConnectFailureIsObservedNotReturned(t *testing.T) {
	ctx := context.Background()
	errs := &errorLog{}
	ch := notify.NewChannel(closedAddr(t),
		notify.WithErrorObserver(errs.observe),
		notify.WithDialTimeout(time.Second),
		notify.WithLogger(nullLogger))

	ch.Connect(ctx) // returns immediately
	waitClosed(t, ch.Done())

	var connErr *notify.ConnectionError
	require.ErrorAs(t, ch.WaitConnected(ctx), &connErr)
	assert.Equal(t, ch.Addr(), connErr.Addr)
	assert.False(t, ch.IsConnected())
	require.Len(t, errs.all(), 1)
	assert.ErrorAs(t, errs.all()[0], &connErr)
}

func TestChannel_ConnectDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	dialer := func(ctx context.Context, _, _ string) (net.Conn, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, errors.New("refused")
	}
	ch := notify.NewChannel("relay:5000", notify.WithDialer(dialer), notify.WithLogger(nullLogger))

	start := time.Now()
	ch.Connect(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, notify.StateConnecting, ch.State())

	close(release)
	waitClosed(t, ch.Done())
	assert.Equal(t, notify.StateDisconnected, ch.State())
}

func TestChannel_HandlerReceivesLinesInOrderUntilPeerCloses(t *testing.T) {
	ctx := context.Background()
	srv := newLineServer(t)

	var lock sync.Mutex
	var received []string
	ch := notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger), notify.WithHandler(func(line string) {
		lock.Lock()
		received = append(received, line)
		lock.Unlock()
	}))
	ch.Connect(ctx)
	require.NoError(t, ch.WaitConnected(ctx))

	peer := srv.nextConn(t)
	_, err := io.WriteString(peer, "SEAT_UPDATE:1:1:A1\nSEAT_UPDATE:1:1:A2\r\nSEAT_UPDATE:1:1:A3\n")
	require.NoError(t, err)
	require.NoError(t, peer.Close())

	waitClosed(t, ch.Done())
	assert.False(t, ch.IsConnected())
	assert.ErrorIs(t, ch.Send(ctx, "x"), notify.ErrNotConnected)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, []string{"SEAT_UPDATE:1:1:A1", "SEAT_UPDATE:1:1:A2", "SEAT_UPDATE:1:1:A3"}, received)
}

func TestChannel_StopFromInsideHandler(t *testing.T) {
	ctx := context.Background()
	srv := newLineServer(t)

	var ch *notify.Channel
	var calls int
	ch = notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger), notify.WithHandler(func(line string) {
		calls++
		ch.Stop()
	}))
	ch.Connect(ctx)
	require.NoError(t, ch.WaitConnected(ctx))

	peer := srv.nextConn(t)
	_, err := io.WriteString(peer, "one\n")
	require.NoError(t, err)

	waitClosed(t, ch.Done())
	assert.Equal(t, 1, calls)
	assert.False(t, ch.IsConnected())
}

func TestChannel_SendHonoursContext(t *testing.T) {
	srv := newLineServer(t)
	ch := notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger))
	ch.Connect(context.Background())
	require.NoError(t, ch.WaitConnected(context.Background()))
	defer ch.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ch.Send(ctx, "hello")
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestChannel_MultipleListenersUseSeparateChannels(t *testing.T) {
	ctx := context.Background()
	srv := newLineServer(t)

	a := notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger))
	b := notify.NewChannel(srv.addr(), notify.WithLogger(nullLogger))
	a.Connect(ctx)
	b.Connect(ctx)
	require.NoError(t, a.WaitConnected(ctx))
	require.NoError(t, b.WaitConnected(ctx))

	a.Stop()
	waitClosed(t, a.Done())
	assert.True(t, b.IsConnected(), "stopping one channel leaves the other open")
	require.NoError(t, b.Send(ctx, "still here"))
	assert.Equal(t, "still here", srv.nextLine(t))
	b.Stop()
}

func TestChannel_StopWhileConnectingIsNotAnError(t *testing.T) {
	dialing := make(chan struct{})
	dialer := func(ctx context.Context, _, _ string) (net.Conn, error) {
		close(dialing)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	errs := &errorLog{}
	ch := notify.NewChannel("relay:5000",
		notify.WithDialer(dialer),
		notify.WithErrorObserver(errs.observe),
		notify.WithDialTimeout(time.Minute),
		notify.WithLogger(nullLogger))

	ch.Connect(context.Background())
	<-dialing
	ch.Stop()
	waitClosed(t, ch.Done())

	assert.Empty(t, errs.all())
	assert.NoError(t, ch.Err())
	assert.ErrorIs(t, ch.WaitConnected(context.Background()), notify.ErrNotConnected)
}
