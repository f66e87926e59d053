package log

import (
	"io"
	"os"

	"gopkg.in/Sirupsen/logrus.v0"
)

var disabled bool

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetOutput(os.Stderr)
}

// Disable turns off all logging, including warnings and errors.
func Disable() {
	disabled = true
}

// Enable reverts a previous call to Disable.
func Enable() {
	disabled = false
}

// SetOutput sets the destination of all log records.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// AddHook registers a logrus hook, fired for every emitted record.
func AddHook(h logrus.Hook) {
	logrus.AddHook(h)
}

// ResetHooks removes all hooks previously added with AddHook.
func ResetHooks() {
	logrus.StandardLogger().Hooks = make(logrus.LevelHooks)
}

// A LogContext adds fields to every emitted record (for example the current
// simulation tick).
type LogContext interface {
	AddLogContext(z *EntryZ)
}

var contexts []LogContext

// AddContext registers a context whose fields are added to every record.
func AddContext(ctx LogContext) {
	contexts = append(contexts, ctx)
}

// RemoveContext unregisters ctx.
func RemoveContext(ctx LogContext) {
	for i, c := range contexts {
		if c == ctx {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}
