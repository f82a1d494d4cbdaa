package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/model"
)

// DateTimeLayout is the only accepted deadline format.
const DateTimeLayout = "02-01-2006 15:04"

// DefaultLeadTime applies when a task-add command carries no H-<hours> field.
const DefaultLeadTime = 15 * time.Minute

var (
	dateTimePattern     = regexp.MustCompile(`^\d{2}-\d{2}-\d{4} \d{2}:\d{2}$`)
	reminderSpecPattern = regexp.MustCompile(`(?i)^H-(\d+)$`)
)

// TaskDraft is a validated task ready to be stored.
type TaskDraft struct {
	Name      string
	Subject   string
	Room      string
	DueAt     time.Time
	LeadTime  time.Duration
	Recurring bool
}

// ValidateTaskAdd checks the fields of a task-add command: name, subject,
// datetime and an optional H-<hours> reminder lead. offsetMinutes is the
// group's UTC offset.
func ValidateTaskAdd(fields []string, offsetMinutes int, now time.Time) (TaskDraft, error) {
	if len(fields) != 3 && len(fields) != 4 {
		return TaskDraft{}, domain.NewError(domain.KindBadArity, "expected name, subject, datetime and optional H-<hours>")
	}

	name, subject, rawTime := fields[0], fields[1], fields[2]
	if name == "" || subject == "" {
		return TaskDraft{}, domain.NewError(domain.KindBadArity, "name and subject must not be empty")
	}

	lead := DefaultLeadTime
	if len(fields) == 4 {
		parsed, err := ParseReminderSpec(fields[3])
		if err != nil {
			return TaskDraft{}, err
		}
		lead = parsed
	}

	due, err := ParseLocalDateTime(rawTime, offsetMinutes)
	if err != nil {
		return TaskDraft{}, err
	}
	if !due.After(now.UTC()) {
		return TaskDraft{}, domain.NewError(domain.KindPastDateTime, "deadline must be in the future")
	}

	return TaskDraft{
		Name:     name,
		Subject:  subject,
		Room:     model.RoomPlaceholder,
		DueAt:    due,
		LeadTime: lead,
	}, nil
}

// ParseReminderSpec parses H-<hours> with hours >= 1.
func ParseReminderSpec(raw string) (time.Duration, error) {
	match := reminderSpecPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return 0, domain.NewError(domain.KindBadReminderSpec, "reminder must look like H-<hours>")
	}
	hours, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || hours < 1 || hours > math.MaxInt64/int64(time.Hour) {
		return 0, domain.NewError(domain.KindBadReminderSpec, "reminder hours must be a positive number")
	}
	return time.Duration(hours) * time.Hour, nil
}

// ParseLocalDateTime parses DD-MM-YYYY HH:mm in the given offset and returns UTC.
func ParseLocalDateTime(raw string, offsetMinutes int) (time.Time, error) {
	if !dateTimePattern.MatchString(raw) {
		return time.Time{}, domain.NewError(domain.KindBadDateTime, "datetime must be DD-MM-YYYY HH:mm")
	}
	loc := time.FixedZone("", offsetMinutes*60)
	local, err := time.ParseInLocation(DateTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, domain.WrapError(domain.KindBadDateTime, "datetime is not a calendar date", err)
	}
	return local.UTC(), nil
}
