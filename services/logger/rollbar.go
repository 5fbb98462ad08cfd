// Package logsvc prints log lines and forwards them to Rollbar.
package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type level struct {
	tag    string
	report func(...interface{})
}

var (
	levelDebug = level{"DEBUG", rollbar.Debug}
	levelInfo  = level{"INFO", rollbar.Info}
	levelWarn  = level{"WARN", rollbar.Warning}
	levelError = level{"ERROR", rollbar.Error}
	levelFatal = level{"FATAL", rollbar.Critical}
)

// RollbarLogger writes every entry to std and reports it to Rollbar when reporting is enabled.
// Debug entries are dropped unless the app runs in debug mode.
type RollbarLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std, debug: conf.Debug}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// reportArgs turns log args into Rollbar args: the first user.User becomes the person of the
// report, with its role and student code added to the extras.
// Accepted args: error, map[string]interface{}, user.User.
func reportArgs(msg string, args []interface{}) []interface{} {
	var usr *user.User
	out := make([]interface{}, 0, len(args)+2)
	out = append(out, msg)
	extras := map[string]interface{}{}
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if usr == nil {
				u := a
				usr = &u
			}
		case map[string]interface{}:
			for k, v := range a {
				extras[k] = v
			}
		default:
			out = append(out, arg)
		}
	}

	if usr != nil {
		rollbar.SetPerson(strconv.FormatInt(usr.ID, 10), usr.Username, usr.Email)
		if usr.Role != "" {
			extras["user_role"] = usr.Role
		}
		if usr.StudentCode.Valid {
			extras["student_code"] = usr.StudentCode.String
		}
	} else {
		rollbar.ClearPerson()
	}
	if len(extras) > 0 {
		out = append(out, extras)
	}
	return out
}

func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	lvl.report(reportArgs(msg, args)...)
	l.std.Printf("[%s] %s", lvl.tag, msg)
	for _, arg := range args {
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.log(levelDebug, msg, args)
	}
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) { l.log(levelInfo, msg, args) }

func (l *RollbarLogger) Warn(msg string, args ...interface{}) { l.log(levelWarn, msg, args) }

func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
