package utils

import (
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerSettings tunes NewBreaker. Zero fields take the defaults below.
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	Timeout      time.Duration
}

// NewBreaker builds a circuit breaker for an outbound client. It opens once
// at least MinRequests calls (default 10) have been made in the window and
// FailureRatio (default 0.6) of them failed, then probes again after Timeout.
func NewBreaker[T any](name string, s BreakerSettings) *gobreaker.CircuitBreaker[T] {
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
	if s.Timeout == 0 {
		s.Timeout = time.Minute
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			ratio := float64(c.TotalFailures) / float64(c.Requests)
			return ratio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[Breaker] state change")
		},
	})
}
