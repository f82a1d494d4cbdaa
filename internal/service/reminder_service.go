package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"deadline-buddy/internal/gateway"
	"deadline-buddy/internal/model"
	"deadline-buddy/internal/repository"
)

// TickReport summarizes one scheduler pass.
type TickReport struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	// Unrecorded counts delivered reminders whose completion could not be
	// stored. They stay due and are delivered again on a later tick.
	Unrecorded int `json:"unrecorded"`
	// Duplicates counts deliveries of reminders another tick had completed.
	Duplicates int `json:"duplicates"`
	Recurred   int `json:"recurred"`
}

// ErrTickBusy is returned by TryTick while another tick is running.
var ErrTickBusy = errors.New("reminder tick already running")

// ReminderService sends due reminders and regenerates weekly tasks.
type ReminderService struct {
	tasks   *TaskService
	zones   *TimezoneService
	sender  gateway.Sender
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	// mu serializes ticks within the process.
	mu sync.Mutex
}

func NewReminderService(tasks *TaskService, zones *TimezoneService, sender gateway.Sender, dispatchTimeout time.Duration, log *zap.Logger) *ReminderService {
	if log == nil {
		log = zap.NewNop()
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = 15 * time.Second
	}
	return &ReminderService{
		tasks:   tasks,
		zones:   zones,
		sender:  sender,
		log:     log,
		timeout: dispatchTimeout,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// Tick runs one scan, waiting for a running tick to finish first. A failure
// on one reminder is logged and the rest of the batch still runs; only a
// failing scan returns an error.
func (s *ReminderService) Tick(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick(ctx)
}

// TryTick runs one scan unless another tick is running, in which case it
// returns ErrTickBusy.
func (s *ReminderService) TryTick(ctx context.Context) (TickReport, error) {
	if !s.mu.TryLock() {
		return TickReport{}, ErrTickBusy
	}
	defer s.mu.Unlock()
	return s.tick(ctx)
}

func (s *ReminderService) tick(ctx context.Context) (TickReport, error) {
	now := s.now().UTC()
	due, err := s.tasks.DueReminders(ctx, now)
	if err != nil {
		return TickReport{}, err
	}

	report := TickReport{Due: len(due)}
	if len(due) == 0 {
		return report, nil
	}

	s.log.Info("processing reminders", zap.Int("count", len(due)))
	for _, item := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.process(ctx, item, now, &report)
	}
	return report, nil
}

func (s *ReminderService) process(ctx context.Context, item repository.DueReminder, now time.Time, report *TickReport) {
	task := item.Task
	log := s.log.With(
		zap.Uint("reminder_id", item.Reminder.ID),
		zap.Uint("task_id", task.ID),
		zap.String("chat_id", task.ChatID),
	)

	tz, err := s.zones.Resolve(ctx, task.ChatID)
	if err != nil {
		log.Warn("resolve timezone, using default", zap.Error(err))
		tz = model.DefaultTimezone
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.sender.Send(sendCtx, task.ChatID, FormatReminder(task, tz, now))
	cancel()
	if err != nil {
		report.Failed++
		log.Error("send reminder failed", zap.Error(err))
		return
	}

	claimed, next, err := s.tasks.CompleteReminder(ctx, item, s.now())
	switch {
	case err != nil:
		report.Sent++
		report.Unrecorded++
		log.Error("reminder sent but not recorded", zap.Error(err))
		return
	case !claimed:
		report.Duplicates++
		log.Warn("reminder was already completed")
		return
	}

	report.Sent++
	log.Info("reminder sent", zap.String("task", task.Name))
	if next != nil {
		report.Recurred++
		log.Info("weekly task scheduled",
			zap.Uint("next_task_id", next.ID),
			zap.Time("due_at", next.DueAt),
		)
	}
}

// FormatReminder renders the chat message for a due task.
func FormatReminder(task model.Task, tz model.Timezone, now time.Time) string {
	var b strings.Builder
	b.WriteString("🔔 *Pengingat Tenggat!*\n\n")
	b.WriteString(fmt.Sprintf("📚 *%s*\n", task.Name))
	b.WriteString(fmt.Sprintf("📖 Pelajaran: %s\n", task.Subject))
	b.WriteString(fmt.Sprintf("📅 Waktu: %s\n\n", FormatLocal(task.DueAt, tz)))
	b.WriteString(fmt.Sprintf("⏰ *Tenggat %s*", RelativeTime(task.DueAt, now)))
	return b.String()
}
