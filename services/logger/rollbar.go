package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, participant.Participant
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		p, ok := arg.(participant.Participant)
		if !ok {
			newArgs = append(newArgs, arg)
			continue
		}
		if !personSet && p.ID != "" { // only the first one
			rollbar.SetPerson(p.ID, p.Email, p.Email)
			personSet = true
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		if p, ok := arg.(participant.Participant); ok {
			l.std.Printf("  participant: %s <%s>", p.ID, p.Email)
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
