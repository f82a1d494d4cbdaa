package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"deadline-buddy/internal/model"
	"deadline-buddy/internal/service"
)

type scheduleRequest struct {
	ChatID    string `json:"chatId"`
	UserPhone string `json:"userPhone"`
	Name      string `json:"name"`
	Subject   string `json:"subject"`
	Room      string `json:"room"`
	// DateTime uses the chat grammar, DD-MM-YYYY HH:mm in the group's zone.
	DateTime      string `json:"dateTime"`
	ReminderHours int    `json:"reminderHours"`
	IsWeekly      bool   `json:"isWeekly"`
}

type scheduleView struct {
	ID          uint      `json:"id"`
	ChatID      string    `json:"chatId"`
	Creator     string    `json:"creator"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	Room        string    `json:"room"`
	DueAt       time.Time `json:"dueAt"`
	DueLocal    string    `json:"dueLocal"`
	DayOfWeek   string    `json:"dayOfWeek"`
	LeadMinutes int       `json:"leadMinutes"`
	IsWeekly    bool      `json:"isWeekly"`
}

func newScheduleView(task model.Task, tz model.Timezone) scheduleView {
	return scheduleView{
		ID:          task.ID,
		ChatID:      task.ChatID,
		Creator:     task.Creator,
		Name:        task.Name,
		Subject:     task.Subject,
		Room:        task.Room,
		DueAt:       task.DueAt.UTC(),
		DueLocal:    service.FormatLocal(task.DueAt, tz),
		DayOfWeek:   task.DayOfWeek,
		LeadMinutes: task.LeadMinutes,
		IsWeekly:    task.Recurring,
	}
}

func (s *Server) ListSchedules(ctx *fasthttp.RequestCtx) {
	chatID := string(ctx.QueryArgs().Peek("chatId"))
	if chatID == "" {
		respondInvalid(ctx, "chatId is required")
		return
	}

	stdCtx, cancel, _ := s.requestContext(ctx)
	defer cancel()

	tz, err := s.deps.Zones.Resolve(stdCtx, chatID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	tasks, err := s.deps.Tasks.ListActive(stdCtx, chatID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	views := make([]scheduleView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, newScheduleView(task, tz))
	}
	respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"chatId":    chatID,
		"timezone":  tz,
		"count":     len(views),
		"schedules": views,
	})
}

func (s *Server) CreateSchedule(ctx *fasthttp.RequestCtx) {
	var req scheduleRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		respondInvalid(ctx, "invalid payload")
		return
	}
	if req.ChatID == "" || req.UserPhone == "" || req.DateTime == "" {
		respondInvalid(ctx, "chatId, userPhone and dateTime are required")
		return
	}

	stdCtx, cancel, log := s.requestContext(ctx)
	defer cancel()

	tz, err := s.deps.Zones.Resolve(stdCtx, req.ChatID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	fields := []string{strings.TrimSpace(req.Name), strings.TrimSpace(req.Subject), strings.TrimSpace(req.DateTime)}
	if req.ReminderHours != 0 {
		fields = append(fields, fmt.Sprintf("H-%d", req.ReminderHours))
	}
	draft, err := service.ValidateTaskAdd(fields, tz.OffsetMinutes(), s.deps.Now())
	if err != nil {
		respondError(ctx, err)
		return
	}
	if room := strings.TrimSpace(req.Room); room != "" {
		draft.Room = room
	}
	draft.Recurring = req.IsWeekly

	task, reminder, err := s.deps.Tasks.CreateTask(stdCtx, req.ChatID, req.UserPhone, draft)
	if err != nil {
		log.Error("create schedule", zap.Error(err))
		respondError(ctx, err)
		return
	}
	log.Info("schedule created", zap.Uint("task_id", task.ID), zap.String("chat_id", task.ChatID))

	respondSuccess(ctx, http.StatusCreated, map[string]interface{}{
		"schedule": newScheduleView(*task, tz),
		"fireAt":   reminder.FireAt.UTC(),
	})
}

func (s *Server) DeleteSchedule(ctx *fasthttp.RequestCtx) {
	rawID, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		respondInvalid(ctx, "invalid schedule id")
		return
	}
	chatID := string(ctx.QueryArgs().Peek("chatId"))
	if chatID == "" {
		respondInvalid(ctx, "chatId is required")
		return
	}

	stdCtx, cancel, log := s.requestContext(ctx)
	defer cancel()

	if err := s.deps.Tasks.DeleteTask(stdCtx, chatID, uint(id)); err != nil {
		respondError(ctx, err)
		return
	}
	log.Info("schedule deleted", zap.Uint64("task_id", id), zap.String("chat_id", chatID))
	respondSuccess(ctx, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (s *Server) UpcomingReminders(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel, _ := s.requestContext(ctx)
	defer cancel()

	due, err := s.deps.Tasks.DueReminders(stdCtx, s.deps.Now().UTC())
	if err != nil {
		respondError(ctx, err)
		return
	}

	type reminderView struct {
		ReminderID uint         `json:"reminderId"`
		FireAt     time.Time    `json:"fireAt"`
		Schedule   scheduleView `json:"schedule"`
	}
	views := make([]reminderView, 0, len(due))
	for _, item := range due {
		tz, err := s.deps.Zones.Resolve(stdCtx, item.Task.ChatID)
		if err != nil {
			respondError(ctx, err)
			return
		}
		views = append(views, reminderView{
			ReminderID: item.Reminder.ID,
			FireAt:     item.Reminder.FireAt.UTC(),
			Schedule:   newScheduleView(item.Task, tz),
		})
	}
	respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"count":     len(views),
		"reminders": views,
	})
}
