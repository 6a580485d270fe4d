// Package maintenance runs the periodic housekeeping sweeps: purging expired
// soft-deleted priorities, dropping stale sessions, and sending streak
// reminders to users about to lose a run.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stridehq/stride/internal/priority"
	"github.com/stridehq/stride/internal/push"
	"github.com/stridehq/stride/internal/store"
	"github.com/stridehq/stride/internal/streak"
)

const (
	// sweepHour is the UTC hour of the nightly cleanup sweep.
	sweepHour = 3
	// reminderHour is the UTC hour streak reminders go out.
	reminderHour = 18
)

// Scheduler drives the sweeps off a coarse ticker. Each sweep runs at most
// once per UTC day; a restart mid-day just re-runs idempotent work.
type Scheduler struct {
	priorities *priority.Manager
	sessions   *store.SessionStore
	streaks    *store.StreakStore
	notifier   *push.Notifier
	log        *slog.Logger
	interval   time.Duration

	mu           sync.RWMutex
	cancel       context.CancelFunc
	done         chan struct{}
	lastCleanup  string
	lastReminder string
}

func NewScheduler(priorities *priority.Manager, sessions *store.SessionStore, streaks *store.StreakStore, notifier *push.Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		priorities: priorities,
		sessions:   sessions,
		streaks:    streaks,
		notifier:   notifier,
		log:        log,
		interval:   time.Minute,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	today := now.Format(streak.DayFormat)

	s.mu.Lock()
	runCleanup := now.Hour() >= sweepHour && s.lastCleanup != today
	if runCleanup {
		s.lastCleanup = today
	}
	runReminders := now.Hour() >= reminderHour && s.lastReminder != today
	if runReminders {
		s.lastReminder = today
	}
	s.mu.Unlock()

	if runCleanup {
		s.Cleanup(now)
	}
	if runReminders {
		s.SendStreakReminders(now)
	}
}

// Cleanup purges expired soft-deleted priorities and stale sessions. It is
// also invoked directly by the admin maintenance endpoint.
func (s *Scheduler) Cleanup(now time.Time) {
	purged, err := s.priorities.CleanupExpired(now)
	if err != nil {
		s.log.Error("priority cleanup failed", "purged", purged, "error", err)
	} else if purged > 0 {
		s.log.Info("purged expired priorities", "count", purged)
	}

	dropped, err := s.sessions.DeleteExpired()
	if err != nil {
		s.log.Error("session cleanup failed", "error", err)
	} else if dropped > 0 {
		s.log.Info("dropped expired sessions", "count", dropped)
	}
}

// SendStreakReminders nudges every user whose sign-in streak lapses at the
// coming midnight.
func (s *Scheduler) SendStreakReminders(now time.Time) {
	if s.notifier == nil {
		return
	}
	yesterday := now.AddDate(0, 0, -1).Format(streak.DayFormat)

	lapsing, err := s.streaks.ListLapsing(yesterday)
	if err != nil {
		s.log.Error("list lapsing streaks failed", "error", err)
		return
	}

	for _, st := range lapsing {
		s.notifier.StreakReminder(st.UserID, st.Current)
	}
	if len(lapsing) > 0 {
		s.log.Info("sent streak reminders", "count", len(lapsing))
	}
}
