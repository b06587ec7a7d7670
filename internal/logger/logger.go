// Package logger is the leveled logger handed to the portal. Errors can be
// reported to Rollbar as well as printed.
package logger

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"appointment-portal/internal/model"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type StdLogger struct {
	std *log.Logger
}

var _ Logger = (*StdLogger)(nil)

func NewStd(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l *StdLogger) print(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, a := range args {
		fmt.Fprintf(&b, " %+v", a)
	}
	l.std.Println(b.String())
}

func (l *StdLogger) Debug(msg string, args ...any) { l.print("DEBUG", msg, args) }
func (l *StdLogger) Info(msg string, args ...any)  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...any)  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...any) { l.print("ERROR", msg, args) }

// RollbarLogger sends every entry to Rollbar and echoes it to std. A
// model.User among the args becomes the Rollbar person of that item only;
// the shared client is configured once in NewRollbar and never mutated
// afterwards, so concurrent requests can log freely.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbar(std *log.Logger, token, env string) *RollbarLogger {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: NewStd(std)}
}

// prepare turns args into rollbar.Log input: errors and extras maps pass
// through, a model.User becomes a person context, and anything else is
// folded into the message text.
func (l *RollbarLogger) prepare(msg string, args []any) []any {
	var userSet bool
	var b strings.Builder
	b.WriteString(msg)
	out := make([]any, 0, len(args)+2)
	for _, a := range args {
		switch v := a.(type) {
		case model.User:
			if !userSet {
				out = append(out, rollbar.NewPersonContext(context.Background(), &rollbar.Person{
					Id:       fmt.Sprint(v.ID),
					Username: v.Username,
					Email:    v.Email,
				}))
				userSet = true
			}
		case error, map[string]interface{}:
			out = append(out, v)
		default:
			fmt.Fprintf(&b, " %+v", v)
		}
	}
	return append(out, b.String())
}

func (l *RollbarLogger) Debug(msg string, args ...any) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.std.Debug(msg, args...)
}

func (l *RollbarLogger) Info(msg string, args ...any) {
	rollbar.Info(l.prepare(msg, args)...)
	l.std.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...any) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.std.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...any) {
	rollbar.Error(l.prepare(msg, args)...)
	l.std.Error(msg, args...)
}

// Close flushes queued Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// New picks Rollbar when a token is configured.
func New(std *log.Logger, rollbarToken, env string) Logger {
	if rollbarToken == "" {
		return NewStd(std)
	}
	return NewRollbar(std, rollbarToken, env)
}
