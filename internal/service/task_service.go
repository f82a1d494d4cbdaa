package service

import (
	"context"
	"fmt"
	"time"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
	"deadline-buddy/internal/repository"
)

// RecurrenceInterval separates two occurrences of a weekly task.
const RecurrenceInterval = 7 * 24 * time.Hour

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// CreateTask stores a validated draft together with its reminder.
func (s *TaskService) CreateTask(ctx context.Context, chatID, creator string, draft TaskDraft) (*model.Task, *model.Reminder, error) {
	if draft.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}

	task, fireAt := buildTask(chatID, creator, draft)
	reminder, err := s.taskRepo.Create(ctx, &task, fireAt)
	if err != nil {
		return nil, nil, err
	}
	return &task, reminder, nil
}

func buildTask(chatID, creator string, draft TaskDraft) (model.Task, time.Time) {
	lead := draft.LeadTime
	if lead <= 0 {
		lead = DefaultLeadTime
	}
	room := draft.Room
	if room == "" {
		room = model.RoomPlaceholder
	}

	due := draft.DueAt.UTC()
	// Weekday is taken from the UTC instant, not the group's local date.
	weekday := due.Weekday().String()
	task := model.Task{
		ChatID:      chatID,
		Creator:     creator,
		Name:        draft.Name,
		Subject:     draft.Subject,
		Room:        room,
		DueAt:       due,
		DayOfWeek:   weekday,
		LeadMinutes: int(lead / time.Minute),
		Recurring:   draft.Recurring,
	}
	return task, due.Add(-lead)
}

// nextOccurrence is a weekly task one week later with the default lead.
func nextOccurrence(task model.Task) TaskDraft {
	return TaskDraft{
		Name:      task.Name,
		Subject:   task.Subject,
		Room:      task.Room,
		DueAt:     task.DueAt.Add(RecurrenceInterval),
		Recurring: true,
	}
}

// CompleteReminder marks a delivered reminder sent. For a weekly task the
// next occurrence is stored in the same transaction and returned. claimed is
// false when the reminder had already been completed.
func (s *TaskService) CompleteReminder(ctx context.Context, item repository.DueReminder, at time.Time) (claimed bool, next *model.Task, err error) {
	if !item.Task.Recurring {
		claimed, _, err = s.taskRepo.CompleteReminder(ctx, item.Reminder.ID, at, nil, time.Time{})
		return claimed, nil, err
	}

	task, fireAt := buildTask(item.Task.ChatID, item.Task.Creator, nextOccurrence(item.Task))
	claimed, _, err = s.taskRepo.CompleteReminder(ctx, item.Reminder.ID, at, &task, fireAt)
	if err != nil || !claimed {
		return claimed, nil, err
	}
	return true, &task, nil
}

func (s *TaskService) ListActive(ctx context.Context, chatID string) ([]model.Task, error) {
	return s.taskRepo.ListActiveByChat(ctx, chatID)
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, id)
}

// DeleteByName soft-deletes the first active task named name in the chat.
func (s *TaskService) DeleteByName(ctx context.Context, chatID, name string) (*model.Task, error) {
	task, err := s.taskRepo.FindActiveByName(ctx, name, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteTask(ctx, chatID, task.ID); err != nil {
		return nil, err
	}
	task.Active = false
	return task, nil
}

// DeleteTask soft-deletes a task by id within the chat.
func (s *TaskService) DeleteTask(ctx context.Context, chatID string, id uint) error {
	ok, err := s.taskRepo.SoftDelete(ctx, id, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTaskNotFound
	}
	return nil
}

// DueReminders lists reminders ready to fire at now.
func (s *TaskService) DueReminders(ctx context.Context, now time.Time) ([]repository.DueReminder, error) {
	return s.taskRepo.FindDueReminders(ctx, now)
}
