// Package mq carries booking events over Redis pub/sub.
package mq

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"wanderlust/globals"
	"wanderlust/models"
)

// Emitter publishes booking events. Delivery is best effort: a failed
// publish is logged and the request that caused it still succeeds.
type Emitter struct {
	c       *redis.Client
	channel string
}

func NewEmitter(c *redis.Client) *Emitter {
	return &Emitter{c: c, channel: globals.BookingEventsChannel}
}

func (e *Emitter) Publish(ctx context.Context, ev models.BookingEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Type).Msg("[Emit] marshal failed")
		return
	}
	// the request context may already be cancelled once the handler returns
	if err := e.c.Publish(context.WithoutCancel(ctx), e.channel, data).Err(); err != nil {
		log.Error().Err(err).Str("event", ev.Type).Str("booking", ev.Booking.ID).Msg("[Emit] publish failed")
		return
	}
	log.Debug().Str("event", ev.Type).Str("booking", ev.Booking.ID).Msg("[Emit] published")
}

// Sink receives every decoded booking event.
type Sink interface {
	HandleBookingEvent(ctx context.Context, ev models.BookingEvent)
}

type SinkFunc func(ctx context.Context, ev models.BookingEvent)

func (f SinkFunc) HandleBookingEvent(ctx context.Context, ev models.BookingEvent) { f(ctx, ev) }

// StartBookingWorker subscribes to the booking events channel and hands each
// event to the sinks in order. It blocks until ctx is done.
func StartBookingWorker(ctx context.Context, c *redis.Client, sinks ...Sink) {
	sub := c.Subscribe(ctx, globals.BookingEventsChannel)
	defer sub.Close()

	log.Info().Str("channel", globals.BookingEventsChannel).Msg("[BookingWorker] listening")
	consume(ctx, sub.Channel(), sinks)
	log.Info().Msg("[BookingWorker] stopped")
}

func consume(ctx context.Context, ch <-chan *redis.Message, sinks []Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.BookingEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("[BookingWorker] bad payload")
				continue
			}
			for _, s := range sinks {
				s.HandleBookingEvent(ctx, ev)
			}
		}
	}
}
