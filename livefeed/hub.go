// Package livefeed streams booking events to connected admin dashboards.
package livefeed

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"wanderlust/models"
	"wanderlust/query"
)

const sendBuffer = 64

// Client is one subscriber. Filter selects which bookings it hears about.
type Client struct {
	Send   chan []byte
	Filter query.Predicate
	UserID string
}

func NewClient(userID string, filter query.Predicate) *Client {
	return &Client{Send: make(chan []byte, sendBuffer), Filter: filter, UserID: userID}
}

type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.BookingEvent
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.BookingEvent),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then closes every Send.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.Send)
			}
			h.clients = nil
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			log.Debug().Str("user", c.UserID).Int("clients", len(h.clients)).Msg("[LiveFeed] subscribed")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}

		case ev := <-h.broadcast:
			h.route(ev)
		}
	}
}

func (h *Hub) route(ev models.BookingEvent) {
	doc, err := query.DocOf(ev.Booking)
	if err != nil {
		log.Warn().Err(err).Str("event", ev.ID).Msg("[LiveFeed] cannot match event")
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Str("event", ev.ID).Msg("[LiveFeed] marshal failed")
		return
	}
	for c := range h.clients {
		if !c.Filter.Matches(doc) {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// slow consumer
			delete(h.clients, c)
			close(c.Send)
			log.Warn().Str("user", c.UserID).Msg("[LiveFeed] dropped slow subscriber")
		}
	}
}

// Register returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// HandleBookingEvent queues ev for delivery. It gives up when ctx is done or
// the hub has stopped.
func (h *Hub) HandleBookingEvent(ctx context.Context, ev models.BookingEvent) {
	select {
	case h.broadcast <- ev:
	case <-ctx.Done():
	case <-h.done:
	}
}
