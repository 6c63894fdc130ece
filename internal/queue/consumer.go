package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ConsumerConfig locates the broker and the booking log.
type ConsumerConfig struct {
	URL      string
	LogPath  string
	Prefetch int
}

// Consumer appends one line per confirmed booking to a log file.
type Consumer struct {
	cfg    ConsumerConfig
	logger logrus.FieldLogger
	mu     sync.Mutex
}

// NewConsumer builds a consumer.  Empty settings fall back to the local
// broker and logs/booking.log.
func NewConsumer(cfg ConsumerConfig, logger logrus.FieldLogger) *Consumer {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join("logs", "booking.log")
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 50
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Consumer{cfg: cfg, logger: logger.WithField("component", "booking-consumer")}
}

// Run consumes until ctx is done, reconnecting with exponential backoff
// whenever the broker goes away.  It returns nil once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for {
		var conn *amqp.Connection
		err := backoff.RetryNotify(func() error {
			var err error
			conn, err = amqp.Dial(c.cfg.URL)
			return err
		}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
			c.logger.WithError(err).WithField("retry_in", next).Warn("failed to dial broker")
		})
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return nil
		}
		if err != nil {
			// the backoff stops early once the deadline is nearer than the next retry
			<-ctx.Done()
			return nil
		}
		b.Reset()

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.logger.WithError(err).Warn("consume loop ended, reconnecting")
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		c.logger.WithError(err).Warn("set QoS failed")
	}
	if err := declare(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleMessage(d.Body); err != nil {
				c.logger.WithError(err).WithField("message_id", d.MessageId).Error("handle message failed")
				_ = d.Nack(false, false) // do not requeue a message that cannot be parsed or written
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one confirmation and appends it to the log.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLogLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLogLine renders ev as a single newline-terminated log line.
func FormatLogLine(ev BookingConfirmedEvent) string {
	tickets := make([]string, 0, len(ev.TicketIDs))
	for _, id := range ev.TicketIDs {
		tickets = append(tickets, fmt.Sprint(id))
	}
	return fmt.Sprintf("[%s] Booking confirmed | event_id=%s | customer_id=%d | showtime_id=%d | room_id=%d | room=%q | movie=%q | total=%s | tickets=[%s] | seats=[%s]\n",
		ev.ConfirmedAt, ev.EventID, ev.CustomerID, ev.ShowtimeID, ev.RoomID, ev.RoomName, ev.MovieTitle,
		ev.TotalPrice.String(), strings.Join(tickets, ","), strings.Join(ev.SeatNumbers, ","))
}
