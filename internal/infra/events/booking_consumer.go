package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"padel-telegram-notifier/internal/config"
	"padel-telegram-notifier/internal/domain"
	"padel-telegram-notifier/internal/infra/logging"
	"padel-telegram-notifier/internal/infra/metrics"
	"padel-telegram-notifier/internal/usecase"
)

type EventType string

const (
	EventCreated      EventType = "created"
	EventRegistered   EventType = "registered"
	EventUnregistered EventType = "unregistered"
	EventCancelled    EventType = "cancelled"
)

// BookingEvent is published by the booking subsystem after each mutation.
type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	Type      EventType `json:"type"`
}

func DecodeBookingEvent(b []byte) (BookingEvent, error) {
	var ev BookingEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	ev.BookingID = strings.TrimSpace(ev.BookingID)
	if ev.BookingID == "" {
		return ev, fmt.Errorf("%w: booking_id is required", domain.ErrInvalidArgument)
	}
	switch ev.Type {
	case EventCreated, EventRegistered, EventUnregistered, EventCancelled:
	default:
		return ev, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidArgument, ev.Type)
	}
	return ev, nil
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BookingConsumer turns booking events into reconciles. Failed reconciles
// are logged and committed. A transient platform failure leaves the record
// stale (or absent, for a first post) and the sweep retries it; other
// failures wait for the next booking change.
type BookingConsumer struct {
	reader messageReader
	sync   usecase.SyncUseCase
	log    *zerolog.Logger
}

func NewBookingConsumer(cfg config.KafkaConfig, sync usecase.SyncUseCase, logger *zerolog.Logger) *BookingConsumer {
	return &BookingConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             cfg.BookingTopic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		sync: sync,
		log:  logger,
	}
}

func (c *BookingConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run consumes until ctx ends. It returns nil on cancellation.
func (c *BookingConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch booking event: %w", err)
		}
		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("booking event commit failed")
		}
	}
}

func (c *BookingConsumer) handle(ctx context.Context, msg kafka.Message) {
	ev, err := DecodeBookingEvent(msg.Value)
	if err != nil {
		metrics.IncBookingEvent("invalid")
		c.log.Warn().Err(err).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("booking event dropped")
		return
	}
	metrics.IncBookingEvent(string(ev.Type))

	ctx = logging.WithBookingID(ctx, ev.BookingID)
	l := logging.With(ctx, c.log)
	res, err := c.sync.Reconcile(ctx, ev.BookingID)
	if err != nil {
		l.Error().Err(err).Str("event", string(ev.Type)).Msg("reconcile from booking event failed")
		return
	}
	l.Info().Str("event", string(ev.Type)).Str("action", string(res.Action)).Msg("booking event reconciled")
}
