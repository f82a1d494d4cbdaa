package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
)

// DueReminder pairs an unsent reminder with its owning task.
type DueReminder struct {
	Reminder model.Reminder
	Task     model.Task
}

// TaskRepository stores tasks and their reminders.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts the task and its initial reminder in one transaction.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, fireAt time.Time) (*model.Reminder, error) {
	var reminder *model.Reminder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reminder, err = createWithReminder(tx, task, fireAt)
		return err
	})
	if err != nil {
		return nil, domain.IO("create task", err)
	}
	return reminder, nil
}

func createWithReminder(tx *gorm.DB, task *model.Task, fireAt time.Time) (*model.Reminder, error) {
	task.DueAt = task.DueAt.UTC()
	task.Active = true
	if err := tx.Create(task).Error; err != nil {
		return nil, err
	}
	reminder := &model.Reminder{TaskID: task.ID, FireAt: fireAt.UTC()}
	if err := tx.Omit("Task").Create(reminder).Error; err != nil {
		return nil, err
	}
	return reminder, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.ErrTaskNotFound
	default:
		return nil, domain.IO("find task", err)
	}
}

// ListActiveByChat returns active tasks of a chat ordered by due time.
func (r *TaskRepository) ListActiveByChat(ctx context.Context, chatID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("chat_id = ? AND active = ?", chatID, true).
		Order("due_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, domain.IO("list tasks", err)
	}
	return tasks, nil
}

// FindActiveByName returns the first active task with exactly this name.
func (r *TaskRepository) FindActiveByName(ctx context.Context, name, chatID string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("name = ? AND chat_id = ? AND active = ?", name, chatID, true).
		Order("id ASC").
		First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.ErrTaskNotFound
	default:
		return nil, domain.IO("find task by name", err)
	}
}

// SoftDelete deactivates a task. It reports false when no active row matched.
func (r *TaskRepository) SoftDelete(ctx context.Context, id uint, chatID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND chat_id = ? AND active = ?", id, chatID, true).
		Update("active", false)
	if res.Error != nil {
		return false, domain.IO("delete task", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindDueReminders returns unsent reminders of active tasks with fire_at <= now,
// oldest first.
func (r *TaskRepository) FindDueReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Joins("Task").
		Where("reminders.sent = ? AND reminders.fire_at <= ? AND Task.active = ?", false, now.UTC(), true).
		Order("reminders.fire_at ASC, reminders.id ASC").
		Find(&reminders).Error; err != nil {
		return nil, domain.IO("find due reminders", err)
	}

	due := make([]DueReminder, 0, len(reminders))
	for _, rem := range reminders {
		task := rem.Task
		rem.Task = model.Task{}
		due = append(due, DueReminder{Reminder: rem, Task: task})
	}
	return due, nil
}

// MarkSent flags a reminder as delivered. It reports false when the
// reminder was already sent.
func (r *TaskRepository) MarkSent(ctx context.Context, reminderID uint, at time.Time) (bool, error) {
	ok, err := markSent(r.db.WithContext(ctx), reminderID, at)
	if err != nil {
		return false, domain.IO("mark reminder sent", err)
	}
	return ok, nil
}

// CompleteReminder marks a reminder sent and, when next is not nil, stores
// next with a reminder at nextFireAt. Both writes share one transaction.
// claimed is false when the reminder was already sent; nothing is written then.
func (r *TaskRepository) CompleteReminder(ctx context.Context, reminderID uint, at time.Time, next *model.Task, nextFireAt time.Time) (claimed bool, nextReminder *model.Reminder, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := markSent(tx, reminderID, at)
		if err != nil || !ok {
			return err
		}
		if next != nil {
			if nextReminder, err = createWithReminder(tx, next, nextFireAt); err != nil {
				return err
			}
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, nil, domain.IO("complete reminder", err)
	}
	return claimed, nextReminder, nil
}

func markSent(tx *gorm.DB, reminderID uint, at time.Time) (bool, error) {
	res := tx.Model(&model.Reminder{}).
		Where("id = ? AND sent = ?", reminderID, false).
		Updates(map[string]interface{}{
			"sent":    true,
			"sent_at": at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindReminders lists every reminder of a task, oldest first.
func (r *TaskRepository) FindReminders(ctx context.Context, taskID uint) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("fire_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, domain.IO("list reminders", err)
	}
	return reminders, nil
}
