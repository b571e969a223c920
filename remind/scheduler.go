// Package remind schedules one-shot reminder deliveries. Timers live in
// memory; the store is the source of truth, so a restart rebuilds them
// with Rehydrate.
package remind

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quailyquaily/mira/db/models"
	"github.com/quailyquaily/mira/store"
)

// Notifier delivers a fired reminder to its owner.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Scheduler arms a timer per active reminder with a trigger time.
// Reminders whose trigger is already in the past are skipped, not caught
// up. Condition-only reminders (no trigger time) never get a timer.
type Scheduler struct {
	Store      *store.Store
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
	RetryDelay time.Duration

	mu     sync.Mutex
	timers map[int64]*time.Timer
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(st *store.Store, n Notifier, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		Store:      st,
		Notifier:   n,
		Logger:     logger,
		Now:        time.Now,
		RetryDelay: time.Minute,
		timers:     make(map[int64]*time.Timer),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Rehydrate arms timers for every active reminder in the store.
func (s *Scheduler) Rehydrate(ctx context.Context) (int, error) {
	rows, err := s.Store.ActiveReminders(ctx, 0)
	if err != nil {
		return 0, err
	}
	armed := 0
	for _, r := range rows {
		if s.Schedule(r) {
			armed++
		}
	}
	s.Logger.Info("reminder timers rehydrated", "active", len(rows), "armed", armed)
	return armed, nil
}

// Schedule arms a timer for the reminder and reports whether one was
// armed. Re-scheduling an id replaces the previous timer.
func (s *Scheduler) Schedule(r models.Reminder) bool {
	if r.TriggerAt == nil {
		return false
	}
	trigger := time.UnixMilli(*r.TriggerAt)
	delay := trigger.Sub(s.Now())
	if delay <= 0 {
		s.Logger.Info("past reminder skipped", "reminder_id", r.ID, "trigger_at", trigger)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[r.ID]; ok {
		old.Stop()
	}
	s.timers[r.ID] = time.AfterFunc(delay, func() { s.fire(r) })
	return true
}

// Cancel stops the timer for a reminder, if one is armed.
func (s *Scheduler) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Stop cancels all timers and aborts in-flight deliveries.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.cancel()
}

// fire claims the reminder and delivers it. The conditional status
// update is the at-most-once gate: whichever process flips
// active→completed owns delivery. A failed delivery is retried once;
// after that the reminder is dropped rather than risking a duplicate.
func (s *Scheduler) fire(r models.Reminder) {
	s.mu.Lock()
	delete(s.timers, r.ID)
	s.mu.Unlock()

	claimed, err := s.claim(r.ID)
	if err != nil {
		s.Logger.Error("reminder claim failed", "error", err, "reminder_id", r.ID)
		return
	}
	if !claimed {
		return
	}

	if err := s.deliver(r); err == nil {
		s.Logger.Info("reminder delivered", "reminder_id", r.ID, "user_id", r.UserID)
		return
	} else {
		s.Logger.Warn("reminder delivery failed, retrying", "error", err, "reminder_id", r.ID)
	}

	select {
	case <-time.After(s.RetryDelay):
	case <-s.ctx.Done():
		return
	}
	if err := s.deliver(r); err != nil {
		s.Logger.Error("reminder delivery dropped", "error", err, "reminder_id", r.ID, "user_id", r.UserID)
		return
	}
	s.Logger.Info("reminder delivered on retry", "reminder_id", r.ID, "user_id", r.UserID)
}

func (s *Scheduler) claim(id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	return s.Store.CompleteReminder(ctx, id)
}

func (s *Scheduler) deliver(r models.Reminder) error {
	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	return s.Notifier.Notify(ctx, r.UserID, "⏰ Напоминание: "+r.Text)
}
