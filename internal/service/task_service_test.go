package service

import (
	"context"
	"testing"
	"time"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
	"deadline-buddy/internal/repository"
)

func TestCreateTaskDefaults(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(newTestDB(t)))
	// 23:30 WIB on a Monday is still Monday 16:30 UTC.
	due := time.Date(2025, 11, 24, 23, 30, 0, 0, model.WIB.Location())

	task, reminder, err := svc.CreateTask(context.Background(), "g1", "6281234", TaskDraft{
		Name:    "Bab 1",
		Subject: "Matematika",
		DueAt:   due,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Room != model.RoomPlaceholder {
		t.Fatalf("room = %q, want placeholder", task.Room)
	}
	if task.LeadMinutes != 15 {
		t.Fatalf("lead = %d, want 15", task.LeadMinutes)
	}
	if task.DayOfWeek != "Monday" {
		t.Fatalf("day of week = %q, want Monday", task.DayOfWeek)
	}
	if task.DueAt.Location() != time.UTC {
		t.Fatalf("due must be stored in UTC, got %v", task.DueAt.Location())
	}
	if !reminder.FireAt.Equal(due.Add(-15*time.Minute)) || reminder.Sent {
		t.Fatalf("unexpected reminder: %+v", reminder)
	}
}

func TestCreateTaskCustomLead(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(newTestDB(t)))
	due := time.Date(2025, 11, 25, 3, 0, 0, 0, time.UTC)

	task, reminder, err := svc.CreateTask(context.Background(), "g1", "6281234", TaskDraft{
		Name:     "Bab 1",
		Subject:  "Matematika",
		DueAt:    due,
		LeadTime: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.LeadMinutes != 24*60 || !reminder.FireAt.Equal(due.Add(-24*time.Hour)) {
		t.Fatalf("unexpected lead: task %+v reminder %+v", task, reminder)
	}
}

func TestDeleteTask(t *testing.T) {
	svc := NewTaskService(repository.NewTaskRepository(newTestDB(t)))
	ctx := context.Background()
	task, _, err := svc.CreateTask(ctx, "g1", "6281234", TaskDraft{
		Name:    "Bab 1",
		Subject: "Matematika",
		DueAt:   time.Date(2025, 11, 25, 3, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteTask(ctx, "other-group", task.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NOT_FOUND for foreign chat, got %v", err)
	}
	if err := svc.DeleteTask(ctx, "g1", task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteTask(ctx, "g1", task.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NOT_FOUND on second delete, got %v", err)
	}
	if _, err := svc.DeleteByName(ctx, "g1", "Bab 1"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NOT_FOUND by name after delete, got %v", err)
	}
}
