package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"

	"deadline-buddy/internal/domain"
)

// Envelope wraps every API response.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
}

func newSuccess(data interface{}) Envelope {
	return Envelope{Status: "success", Data: data}
}

func newError(code string, err interface{}) Envelope {
	return Envelope{Status: "error", Code: code, Error: err}
}

func respondJSON(ctx *fasthttp.RequestCtx, status int, payload Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	respondJSON(ctx, status, newSuccess(data))
}

func respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	respondJSON(ctx, status, newError(code, err.Error()))
}

func respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	respondJSON(ctx, http.StatusBadRequest, newError(codeInvalid, message))
}

const (
	codeInvalid = "INVALID"
	codeBusy    = "BUSY"
)

func mapError(err error) (int, string) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindBadArity, domain.KindBadDateTime, domain.KindPastDateTime,
		domain.KindBadReminderSpec, domain.KindBadTimezone:
		return http.StatusBadRequest, string(kind)
	case domain.KindNotFound:
		return http.StatusNotFound, string(kind)
	default:
		return http.StatusInternalServerError, string(domain.KindIO)
	}
}
