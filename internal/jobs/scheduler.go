// Package jobs runs the periodic maintenance of the worker process.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	completeSpec = "0 */5 * * * *" // every five minutes
	purgeSpec    = "0 0 * * * *"   // hourly

	// CompletionGrace is how long after its start a paid slot is closed.
	CompletionGrace = 30 * time.Minute

	jobTimeout = time.Minute
)

// BookingCompleter closes paid bookings whose slot has passed.
type BookingCompleter interface {
	CompleteElapsed(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// TokenPurger clears expired remember-me tokens.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	bookings BookingCompleter
	tokens   TokenPurger
	now      func() time.Time
	log      zerolog.Logger
}

func NewScheduler(bookings BookingCompleter, tokens TokenPurger, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		bookings: bookings,
		tokens:   tokens,
		now:      time.Now,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(completeSpec, s.CompleteBookings); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(purgeSpec, s.PurgeTokens); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs, at most five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out with jobs still running")
	}
}

// CompleteBookings runs one auto-completion pass.
func (s *Scheduler) CompleteBookings() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.bookings.CompleteElapsed(ctx, s.now(), CompletionGrace)
	if err != nil {
		s.log.Error().Err(err).Msg("complete elapsed bookings failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("bookings", n).Msg("bookings auto-completed")
	}
}

// PurgeTokens runs one remember-token cleanup pass.
func (s *Scheduler) PurgeTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.tokens.PurgeExpired(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("purge remember tokens failed")
		return
	}
	s.log.Debug().Int64("tokens", n).Msg("expired remember tokens purged")
}
