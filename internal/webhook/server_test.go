package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"deadline-buddy/internal/bot"
	"deadline-buddy/internal/domain"
	"deadline-buddy/internal/gateway"
	"deadline-buddy/internal/repository"
	"deadline-buddy/internal/service"
)

// 07:00 WIB.
var testNow = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, chatID+"|"+text)
	return nil
}

type testServer struct {
	handler fasthttp.RequestHandler
	sender  *fakeSender
	tasks   *service.TaskService
	deps    Deps
}

func newTestServer(t *testing.T, customize func(*Deps)) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:webhook_%s?mode=memory&cache=shared", name), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := func() time.Time { return testNow }
	sender := &fakeSender{}
	tasks := service.NewTaskService(repository.NewTaskRepository(db))
	zones := service.NewTimezoneService(repository.NewGroupSettingsRepository(db))
	deps := Deps{
		BotName:   "Deadline Buddy",
		Transport: "waha",
		Processor: bot.NewProcessor("!", "Deadline Buddy", tasks, zones, nil).WithClock(clock),
		Tasks:     tasks,
		Zones:     zones,
		Reminders: service.NewReminderService(tasks, zones, sender, time.Second, nil).WithClock(clock),
		Sender:    sender,
		Now:       clock,
	}
	if customize != nil {
		customize(&deps)
	}
	return &testServer{
		handler: NewServer(deps).Handler(),
		sender:  sender,
		tasks:   tasks,
		deps:    deps,
	}
}

type response struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  json.RawMessage `json:"error"`
}

func (s *testServer) do(t *testing.T, method, uri, body string) (int, response) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}
	s.handler(&ctx)

	var resp response
	if err := json.Unmarshal(ctx.Response.Body(), &resp); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, uri, ctx.Response.Body(), err)
	}
	return ctx.Response.StatusCode(), resp
}

func decodeData(t *testing.T, resp response, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
}

func wahaMessageEvent(from, participant, body string) string {
	event := map[string]interface{}{
		"event":   "message",
		"session": "default",
		"payload": map[string]interface{}{
			"id":          "false_" + from + "_ABC",
			"from":        from,
			"fromMe":      false,
			"participant": participant,
			"body":        body,
			"sender":      map[string]string{"name": "Ana"},
		},
	}
	raw, _ := json.Marshal(event)
	return string(raw)
}

func TestWebhookProcessesCommands(t *testing.T) {
	s := newTestServer(t, nil)

	status, resp := s.do(t, http.MethodPost, "/api/webhook",
		wahaMessageEvent("120363@g.us", "6281234@c.us", "!tugas-tambah Bab 1, Matematika, 25-11-2025 10:00\n!tugas"))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %+v", status, resp)
	}
	var data struct {
		Count  int    `json:"count"`
		Sender string `json:"sender"`
	}
	decodeData(t, resp, &data)
	if data.Count != 2 || data.Sender != "6281234" {
		t.Fatalf("unexpected data: %+v", data)
	}

	if len(s.sender.sent) != 1 {
		t.Fatalf("expected one combined reply, got %d", len(s.sender.sent))
	}
	reply := s.sender.sent[0]
	if !strings.HasPrefix(reply, "120363@g.us|") || !strings.Contains(reply, "Bab 1") || !strings.Contains(reply, "─────") {
		t.Fatalf("unexpected reply: %s", reply)
	}

	tasks, err := s.tasks.ListActive(context.Background(), "120363@g.us")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Creator != "6281234" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestWebhookIgnoresNonCommands(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", "{", "No event data"},
		{"other event", `{"event":"session.status","payload":{"status":"WORKING"}}`, "Event ignored"},
		{"empty body", wahaMessageEvent("628@c.us", "", "   "), "No text message"},
		{"plain chat", wahaMessageEvent("628@c.us", "", "halo semua"), "Not a command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, http.MethodPost, "/api/webhook", tt.body)
			if status != http.StatusOK {
				t.Fatalf("status = %d", status)
			}
			var data map[string]string
			decodeData(t, resp, &data)
			if data["message"] != tt.want {
				t.Fatalf("message = %q, want %q", data["message"], tt.want)
			}
		})
	}
	if len(s.sender.sent) != 0 {
		t.Fatalf("expected no replies, got %v", s.sender.sent)
	}
}

func TestWebhookReplyFailure(t *testing.T) {
	s := newTestServer(t, nil)
	s.sender.err = domain.IO("send message", errors.New("waha down"))

	status, resp := s.do(t, http.MethodPost, "/api/webhook", wahaMessageEvent("628@c.us", "", "!start"))
	if status != http.StatusInternalServerError || resp.Code != string(domain.KindIO) {
		t.Fatalf("status = %d code = %q", status, resp.Code)
	}
}

func TestSchedulesAPI(t *testing.T) {
	s := newTestServer(t, nil)

	status, resp := s.do(t, http.MethodPost, "/api/schedules",
		`{"chatId":"g1","userPhone":"6281234","name":"Praktikum","subject":"Fisika","room":"Lab 2","dateTime":"25-11-2025 10:00","reminderHours":2,"isWeekly":true}`)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d, %+v", status, resp)
	}
	var created struct {
		Schedule scheduleView `json:"schedule"`
		FireAt   time.Time    `json:"fireAt"`
	}
	decodeData(t, resp, &created)
	if created.Schedule.Room != "Lab 2" || !created.Schedule.IsWeekly || created.Schedule.LeadMinutes != 120 {
		t.Fatalf("unexpected schedule: %+v", created.Schedule)
	}
	if !created.FireAt.Equal(time.Date(2025, 11, 25, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("fire at = %v", created.FireAt)
	}

	status, resp = s.do(t, http.MethodGet, "/api/schedules?chatId=g1", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	var list struct {
		Timezone  string         `json:"timezone"`
		Count     int            `json:"count"`
		Schedules []scheduleView `json:"schedules"`
	}
	decodeData(t, resp, &list)
	if list.Count != 1 || list.Timezone != "WIB" || list.Schedules[0].DueLocal != "25/11/2025 10:00 WIB" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if status, _ := s.do(t, http.MethodGet, "/api/schedules", ""); status != http.StatusBadRequest {
		t.Fatalf("list without chatId status = %d", status)
	}

	id := created.Schedule.ID
	status, resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d?chatId=other", id), "")
	if status != http.StatusNotFound || resp.Code != string(domain.KindNotFound) {
		t.Fatalf("foreign delete status = %d code = %q", status, resp.Code)
	}
	if status, _ := s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d?chatId=g1", id), ""); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status, _ := s.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d?chatId=g1", id), ""); status != http.StatusNotFound {
		t.Fatalf("second delete status = %d", status)
	}
	if status, _ := s.do(t, http.MethodDelete, "/api/schedules/abc?chatId=g1", ""); status != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", status)
	}
}

func TestCreateScheduleValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"payload", `not json`, codeInvalid},
		{"missing chat", `{"userPhone":"1","name":"A","subject":"B","dateTime":"25-11-2025 10:00"}`, codeInvalid},
		{"empty name", `{"chatId":"g1","userPhone":"1","subject":"B","dateTime":"25-11-2025 10:00"}`, string(domain.KindBadArity)},
		{"bad datetime", `{"chatId":"g1","userPhone":"1","name":"A","subject":"B","dateTime":"2025-11-25 10:00"}`, string(domain.KindBadDateTime)},
		{"past", `{"chatId":"g1","userPhone":"1","name":"A","subject":"B","dateTime":"01-10-2025 10:00"}`, string(domain.KindPastDateTime)},
		{"reminder", `{"chatId":"g1","userPhone":"1","name":"A","subject":"B","dateTime":"25-11-2025 10:00","reminderHours":-3}`, string(domain.KindBadReminderSpec)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := s.do(t, http.MethodPost, "/api/schedules", tt.body)
			if status != http.StatusBadRequest || resp.Code != tt.code {
				t.Fatalf("status = %d code = %q, want 400 %q", status, resp.Code, tt.code)
			}
		})
	}
}

func TestUpcomingRemindersAndManualTick(t *testing.T) {
	s := newTestServer(t, nil)

	// Due at 07:10 WIB with the default 15 minute lead: already due.
	if status, resp := s.do(t, http.MethodPost, "/api/schedules",
		`{"chatId":"g1","userPhone":"6281234","name":"Kuis","subject":"Biologi","dateTime":"01-11-2025 07:10"}`); status != http.StatusCreated {
		t.Fatalf("create status = %d, %+v", status, resp)
	}

	var upcoming struct {
		Count int `json:"count"`
	}
	_, resp := s.do(t, http.MethodGet, "/api/schedules/upcoming-reminders", "")
	decodeData(t, resp, &upcoming)
	if upcoming.Count != 1 {
		t.Fatalf("expected 1 due reminder, got %d", upcoming.Count)
	}

	status, resp := s.do(t, http.MethodPost, "/api/scheduler/run", "")
	if status != http.StatusOK {
		t.Fatalf("run status = %d", status)
	}
	var report service.TickReport
	decodeData(t, resp, &report)
	if report != (service.TickReport{Due: 1, Sent: 1}) {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(s.sender.sent) != 1 || !strings.Contains(s.sender.sent[0], "Kuis") {
		t.Fatalf("unexpected sends: %v", s.sender.sent)
	}

	_, resp = s.do(t, http.MethodGet, "/api/schedules/upcoming-reminders", "")
	decodeData(t, resp, &upcoming)
	if upcoming.Count != 0 {
		t.Fatalf("expected no due reminders after tick, got %d", upcoming.Count)
	}
}

func TestManualTickWhileSchedulerBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := newTestServer(t, func(d *Deps) {
		blocking := gateway.SenderFunc(func(ctx context.Context, chatID, text string) error {
			close(entered)
			<-release
			return nil
		})
		d.Reminders = service.NewReminderService(d.Tasks, d.Zones, blocking, time.Minute, nil).WithClock(d.Now)
	})

	if status, resp := s.do(t, http.MethodPost, "/api/schedules",
		`{"chatId":"g1","userPhone":"6281234","name":"Kuis","subject":"Biologi","dateTime":"01-11-2025 07:10"}`); status != http.StatusCreated {
		t.Fatalf("create status = %d, %+v", status, resp)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.deps.Reminders.Tick(context.Background())
		done <- err
	}()
	<-entered

	status, resp := s.do(t, http.MethodPost, "/api/scheduler/run", "")
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("background tick: %v", err)
	}
	if status != http.StatusConflict || resp.Code != codeBusy {
		t.Fatalf("status = %d code = %q, want 409 %q", status, resp.Code, codeBusy)
	}
}

func TestHealth(t *testing.T) {
	healthy := newTestServer(t, func(d *Deps) {
		d.Ping = func(context.Context) error { return nil }
	})
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(http.MethodGet)
	ctx.Request.SetRequestURI("/health")
	ctx.Request.Header.Set("X-Request-ID", "req-1")
	healthy.handler(&ctx)
	if ctx.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Header.Peek("X-Request-ID")); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}

	degraded := newTestServer(t, func(d *Deps) {
		d.Ping = func(context.Context) error { return errors.New("database is closed") }
	})
	status, resp := degraded.do(t, http.MethodGet, "/health", "")
	if status != http.StatusServiceUnavailable || resp.Code != "DEGRADED" {
		t.Fatalf("status = %d code = %q", status, resp.Code)
	}
}

func TestCommandsCatalog(t *testing.T) {
	s := newTestServer(t, nil)

	status, resp := s.do(t, http.MethodGet, "/api/commands", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var data struct {
		Prefix       string             `json:"prefix"`
		CommandCount int                `json:"commandCount"`
		Commands     []bot.CatalogEntry `json:"commands"`
	}
	decodeData(t, resp, &data)
	if data.Prefix != "!" || data.CommandCount != 6 || len(data.Commands) != 6 {
		t.Fatalf("unexpected catalog: %+v", data)
	}
	if !strings.HasPrefix(data.Commands[0].Usage, "!tugas-tambah") {
		t.Fatalf("unexpected usage: %q", data.Commands[0].Usage)
	}
}
