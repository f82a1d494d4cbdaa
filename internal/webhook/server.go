// Package webhook serves the WAHA webhook and the operator HTTP API.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"deadline-buddy/internal/bot"
	"deadline-buddy/internal/gateway"
	"deadline-buddy/internal/logger"
	"deadline-buddy/internal/service"
)

// Deps are the collaborators of the Server.
type Deps struct {
	BotName   string
	Transport string
	Processor *bot.Processor
	Tasks     *service.TaskService
	Zones     *service.TimezoneService
	Reminders *service.ReminderService
	// Sender delivers replies to webhook messages.
	Sender gateway.Sender
	// Ping checks storage for /health; nil skips the check.
	Ping           func(ctx context.Context) error
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Now            func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
	log  *zap.Logger
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 30 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{deps: deps, log: deps.Logger}
}

// Router registers every route.
func (s *Server) Router() *router.Router {
	r := router.New()

	r.GET("/health", s.Health)
	r.POST("/api/webhook", s.Webhook)
	r.GET("/api/commands", s.Commands)

	r.GET("/api/schedules", s.ListSchedules)
	r.POST("/api/schedules", s.CreateSchedule)
	r.GET("/api/schedules/upcoming-reminders", s.UpcomingReminders)
	r.DELETE("/api/schedules/{id}", s.DeleteSchedule)

	r.POST("/api/scheduler/run", s.RunScheduler)

	return r
}

// Handler returns the routed request handler.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.Router().Handler
}

// requestContext derives a bounded context tagged with a request ID.
func (s *Server) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc, *zap.Logger) {
	stdCtx, cancel := context.WithTimeout(context.Background(), s.deps.RequestTimeout)

	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID")))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set("X-Request-ID", reqID)
	stdCtx = logger.ContextWithRequestID(stdCtx, reqID)

	return stdCtx, cancel, logger.WithRequestID(stdCtx, s.log)
}

func (s *Server) Health(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel, _ := s.requestContext(ctx)
	defer cancel()

	payload := map[string]interface{}{
		"timestamp": s.deps.Now().UTC(),
		"bot":       s.deps.BotName,
		"transport": s.deps.Transport,
	}
	if s.deps.Ping != nil {
		if err := s.deps.Ping(stdCtx); err != nil {
			payload["database"] = err.Error()
			respondJSON(ctx, http.StatusServiceUnavailable, newError("DEGRADED", payload))
			return
		}
		payload["database"] = "ok"
	}
	respondSuccess(ctx, http.StatusOK, payload)
}

func (s *Server) Commands(ctx *fasthttp.RequestCtx) {
	prefix := s.deps.Processor.Prefix()
	commands := bot.Catalog(prefix)
	respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"botName":      s.deps.BotName,
		"prefix":       prefix,
		"commandCount": len(commands),
		"commands":     commands,
	})
}

func (s *Server) RunScheduler(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel, log := s.requestContext(ctx)
	defer cancel()

	report, err := s.deps.Reminders.TryTick(stdCtx)
	if errors.Is(err, service.ErrTickBusy) {
		log.Info("manual tick skipped, scheduler busy")
		respondJSON(ctx, http.StatusConflict, newError(codeBusy, err.Error()))
		return
	}
	if err != nil {
		log.Error("manual tick failed", zap.Error(err))
		respondError(ctx, err)
		return
	}
	log.Info("manual tick", zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("failed", report.Failed), zap.Int("unrecorded", report.Unrecorded))
	respondSuccess(ctx, http.StatusOK, report)
}
