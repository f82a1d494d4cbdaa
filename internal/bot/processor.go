// Package bot turns chat messages into task operations and replies.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/gateway"
	"deadline-buddy/internal/service"
)

// Message is one inbound chat message, independent of the transport.
type Message struct {
	ChatID     string
	Sender     string
	SenderName string
	Body       string
}

// Result is the outcome of handling a message.
type Result struct {
	// Reply joins the replies of every command line; empty means nothing to send.
	Reply string
	// Processed counts lines that carried the prefix.
	Processed int
}

// Processor dispatches chat commands to the task and timezone services.
type Processor struct {
	prefix  string
	botName string
	tasks   *service.TaskService
	zones   *service.TimezoneService
	log     *zap.Logger
	now     func() time.Time
}

func NewProcessor(prefix, botName string, tasks *service.TaskService, zones *service.TimezoneService, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		prefix:  prefix,
		botName: botName,
		tasks:   tasks,
		zones:   zones,
		log:     log,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// Prefix returns the configured command prefix.
func (p *Processor) Prefix() string {
	return p.prefix
}

// Handle processes every prefixed line of msg in order. A failing line
// becomes that line's reply and the remaining lines still run.
func (p *Processor) Handle(ctx context.Context, msg Message) Result {
	var (
		replies []string
		result  Result
	)
	for _, line := range strings.Split(msg.Body, "\n") {
		cmd, ok := Parse(line, p.prefix)
		if !ok {
			continue
		}
		result.Processed++

		reply, err := p.run(ctx, msg, cmd)
		if err != nil {
			if domain.IsKind(err, domain.KindIO) {
				p.log.Error("command failed",
					zap.String("keyword", cmd.Keyword),
					zap.String("chat_id", msg.ChatID),
					zap.Error(err),
				)
				reply = replyApology
			} else {
				p.log.Error("command line failed",
					zap.String("line", strings.TrimSpace(line)),
					zap.String("chat_id", msg.ChatID),
					zap.Error(err),
				)
				reply = lineFailureReply(line)
			}
		}
		if reply != "" {
			replies = append(replies, reply)
		}
	}
	result.Reply = strings.Join(replies, replyDivider)
	return result
}

// HandleAndReply runs Handle and sends the reply back to the chat.
func (p *Processor) HandleAndReply(ctx context.Context, msg Message, sender gateway.Sender) (Result, error) {
	result := p.Handle(ctx, msg)
	if result.Reply == "" {
		return result, nil
	}
	if err := sender.Send(ctx, msg.ChatID, result.Reply); err != nil {
		return result, err
	}
	p.log.Debug("reply sent", zap.String("chat_id", msg.ChatID), zap.Int("commands", result.Processed))
	return result, nil
}

func (p *Processor) run(ctx context.Context, msg Message, cmd Command) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("command panicked", zap.String("keyword", cmd.Keyword), zap.Any("panic", r))
			reply, err = "", fmt.Errorf("panic: %v", r)
		}
	}()

	p.log.Info("processing command",
		zap.String("keyword", cmd.Keyword),
		zap.String("chat_id", msg.ChatID),
		zap.String("sender", msg.SenderName),
	)

	switch cmd.Keyword {
	case KeywordStart:
		return p.startReply(), nil
	case KeywordCommands:
		tz, err := p.zones.Resolve(ctx, msg.ChatID)
		if err != nil {
			return "", err
		}
		return p.commandsReply(tz), nil
	case KeywordTaskAdd:
		return p.handleTaskAdd(ctx, msg, cmd)
	case KeywordTaskList:
		return p.handleTaskList(ctx, msg)
	case KeywordTaskDelete:
		return p.handleTaskDelete(ctx, msg, cmd)
	case KeywordTimezoneEdit:
		return p.handleTimezoneEdit(ctx, msg, cmd)
	default:
		return p.unknownReply(cmd.Keyword), nil
	}
}

func (p *Processor) handleTaskAdd(ctx context.Context, msg Message, cmd Command) (string, error) {
	tz, err := p.zones.Resolve(ctx, msg.ChatID)
	if err != nil {
		return "", err
	}
	now := p.now()

	draft, err := service.ValidateTaskAdd(cmd.Fields, tz.OffsetMinutes(), now)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindBadArity:
			return p.taskAddFormatReply(), nil
		case domain.KindBadReminderSpec:
			return reminderSpecReply(cmd.Fields[3]), nil
		case domain.KindBadDateTime:
			return dateTimeFormatReply(cmd.Fields[2]), nil
		case domain.KindPastDateTime:
			due, perr := service.ParseLocalDateTime(cmd.Fields[2], tz.OffsetMinutes())
			if perr != nil {
				return "", perr
			}
			return pastDateTimeReply(due, now, tz), nil
		default:
			return "", err
		}
	}

	task, reminder, err := p.tasks.CreateTask(ctx, msg.ChatID, msg.Sender, draft)
	if err != nil {
		return "", err
	}
	p.log.Info("task created",
		zap.Uint("task_id", task.ID),
		zap.String("chat_id", task.ChatID),
		zap.Time("due_at", task.DueAt),
		zap.Time("fire_at", reminder.FireAt),
	)
	return taskAddedReply(task, reminder, tz), nil
}

func (p *Processor) handleTaskList(ctx context.Context, msg Message) (string, error) {
	tasks, err := p.tasks.ListActive(ctx, msg.ChatID)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return p.emptyListReply(), nil
	}
	tz, err := p.zones.Resolve(ctx, msg.ChatID)
	if err != nil {
		return "", err
	}
	return p.taskListReply(tasks, tz), nil
}

func (p *Processor) handleTaskDelete(ctx context.Context, msg Message, cmd Command) (string, error) {
	name := strings.Join(cmd.Args, " ")
	if name == "" {
		return p.deleteUsageReply(), nil
	}

	task, err := p.tasks.DeleteByName(ctx, msg.ChatID, name)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return p.taskNotFoundReply(name), nil
		}
		return "", err
	}
	p.log.Info("task deleted", zap.Uint("task_id", task.ID), zap.String("chat_id", msg.ChatID))

	tz, err := p.zones.Resolve(ctx, msg.ChatID)
	if err != nil {
		return "", err
	}
	return taskDeletedReply(task, tz), nil
}

func (p *Processor) handleTimezoneEdit(ctx context.Context, msg Message, cmd Command) (string, error) {
	if len(cmd.Args) != 1 {
		return p.timezoneUsageReply(), nil
	}
	tz, err := p.zones.Set(ctx, msg.ChatID, cmd.Args[0])
	if err != nil {
		if domain.IsKind(err, domain.KindBadTimezone) {
			return p.timezoneUsageReply(), nil
		}
		return "", err
	}
	p.log.Info("timezone updated", zap.String("chat_id", msg.ChatID), zap.String("timezone", string(tz)))
	return timezoneSetReply(tz), nil
}

// unknownReply hints at close matches and ignores everything else.
func (p *Processor) unknownReply(keyword string) string {
	switch {
	case keyword == "":
		return ""
	case strings.HasPrefix(keyword, KeywordTaskList):
		return p.unknownTaskCommandReply()
	case strings.Contains(keyword, "timezone"):
		return p.unknownTimezoneCommandReply()
	default:
		return ""
	}
}
