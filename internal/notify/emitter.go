package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// Emitter pushes seat-occupancy events to the relay.  Each event is
// delivered on a dispatcher worker over a fresh Channel that carries the
// single line and is then stopped; no response is read.
type Emitter struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	dispatcher   *Dispatcher
	logger       logrus.FieldLogger
	dial         DialFunc
}

// EmitterConfig holds the relay address and per-delivery timeouts.
type EmitterConfig struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// Dial overrides the network dialer.
	Dial DialFunc
}

// NewEmitter returns an Emitter that runs deliveries on d.
func NewEmitter(cfg EmitterConfig, d *Dispatcher, logger logrus.FieldLogger) *Emitter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Emitter{
		addr:         cfg.Addr,
		dialTimeout:  cfg.DialTimeout,
		writeTimeout: cfg.WriteTimeout,
		dispatcher:   d,
		logger:       logger.WithField("component", "emitter"),
		dial:         cfg.Dial,
	}
}

// Emit schedules delivery of ev and returns immediately.  An error means
// the event was not scheduled; it is never retried.
func (e *Emitter) Emit(ev model.SeatOccupancyEvent) error {
	line := FormatSeatUpdate(ev)
	return e.dispatcher.Submit("seat_update", func(ctx context.Context) error {
		return e.deliver(ctx, line)
	})
}

func (e *Emitter) deliver(ctx context.Context, line string) error {
	opts := []ChannelOption{WithLogger(e.logger)}
	if e.dialTimeout > 0 {
		opts = append(opts, WithDialTimeout(e.dialTimeout))
	}
	if e.writeTimeout > 0 {
		opts = append(opts, WithWriteTimeout(e.writeTimeout))
	}
	if e.dial != nil {
		opts = append(opts, WithDialer(e.dial))
	}

	ch := NewChannel(e.addr, opts...)
	ch.Connect(ctx)
	defer ch.Stop()

	if err := ch.WaitConnected(ctx); err != nil {
		return err
	}
	if err := ch.Send(ctx, line); err != nil {
		return err
	}
	e.logger.WithField("line", line).Debug("seat update sent")
	return nil
}
