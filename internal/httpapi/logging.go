package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, the HTTP layer is silent.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = func() LogLevel {
	if v := os.Getenv("LLMAPI_REQUEST_LOG"); v != "" {
		return parseLevel(v)
	}
	return LevelInfo
}()

// SetDefaultLogLevel overrides the level used when a request carries none.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// reqLog carries the per-request logging decision through a handler.
type reqLog struct {
	lvl   LogLevel
	route string
	rid   string
	start time.Time
}

func newReqLog(r *http.Request, route string) *reqLog {
	return &reqLog{lvl: requestLogLevel(r), route: route, rid: middleware.GetReqID(r.Context()), start: time.Now()}
}

func (l *reqLog) event(ev *zerolog.Event) *zerolog.Event {
	ev = ev.Str("route", l.route)
	if l.rid != "" {
		ev = ev.Str("request_id", l.rid)
	}
	return ev
}

func (l *reqLog) begin(messages int) {
	if zlog == nil || l.lvl < LevelInfo {
		return
	}
	l.event(zlog.Info()).Int("messages", messages).Msg("chat start")
}

// fragment logs one streamed fragment; only at debug.
func (l *reqLog) fragment(i int, text string) {
	if zlog == nil || l.lvl < LevelDebug {
		return
	}
	l.event(zlog.Debug()).Int("index", i).Str("fragment", text).Msg("chat>")
}

func (l *reqLog) end(status int, fragments int, err error) {
	if zlog == nil {
		return
	}
	switch {
	case status >= 500 && l.lvl >= LevelError:
		l.event(zlog.Error()).Int("status", status).Dur("dur", time.Since(l.start)).Err(err).Msg("chat end")
	case l.lvl >= LevelInfo:
		ev := l.event(zlog.Info()).Int("status", status).Int("fragments", fragments).Dur("dur", time.Since(l.start))
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("chat end")
	}
}
