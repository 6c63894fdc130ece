// Package terminal implements the listening side of a booking terminal:
// it follows the relay and prints seat updates as they arrive.
package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/notify"
)

// Watcher keeps a Channel open to the relay, opening a new one with
// exponential backoff whenever the connection drops.
type Watcher struct {
	Addr string
	// ShowtimeID limits output to one showtime.  Zero prints all.
	ShowtimeID  int64
	Out         io.Writer
	Logger      logrus.FieldLogger
	DialTimeout time.Duration
	// MaxBackoff caps the wait between reconnects.
	MaxBackoff time.Duration

	mu sync.Mutex
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("addr", w.Addr)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxInterval = 10 * time.Second
	if w.MaxBackoff > 0 {
		eb.MaxInterval = w.MaxBackoff
	}
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(eb, ctx)

	for {
		opts := []notify.ChannelOption{notify.WithLogger(logger), notify.WithHandler(w.handle(logger))}
		if w.DialTimeout > 0 {
			opts = append(opts, notify.WithDialTimeout(w.DialTimeout))
		}
		ch := notify.NewChannel(w.Addr, opts...)
		ch.Connect(ctx)

		if err := ch.WaitConnected(ctx); err == nil {
			logger.Info("watching for seat updates")
			b.Reset()
			select {
			case <-ch.Done():
				logger.Warn("relay connection lost")
			case <-ctx.Done():
			}
		} else if ctx.Err() == nil {
			logger.WithError(err).Debug("relay unreachable")
		}
		ch.Stop()
		<-ch.Done()

		if ctx.Err() != nil {
			return nil
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			// deadline nearer than the next retry
			<-ctx.Done()
			return nil
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) handle(logger logrus.FieldLogger) notify.Handler {
	return func(line string) {
		ev, err := notify.ParseSeatUpdate(line)
		if err != nil {
			logger.WithField("line", line).Debug("ignoring unrecognised line")
			return
		}
		if w.ShowtimeID != 0 && ev.ShowtimeID != w.ShowtimeID {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		_, _ = io.WriteString(w.Out, Describe(ev)+"\n")
	}
}

// Describe renders an update for people reading the terminal.
func Describe(ev model.SeatOccupancyEvent) string {
	return fmt.Sprintf("showtime %d, room %d: %s booked", ev.ShowtimeID, ev.RoomID, strings.Join(ev.SeatNumbers, ", "))
}
