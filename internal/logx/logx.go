// Package logx configures the go-log loggers used across treebridge.
package logx

import (
	"github.com/cockroachdb/errors"
	logging "github.com/ipfs/go-log/v2"
)

// Subsystems are the named loggers treebridge creates.
var Subsystems = []string{"treeview", "editor", "hostchan", "shell", "host"}

var formats = map[string]logging.LogFormat{
	"color":   logging.ColorizedOutput,
	"nocolor": logging.PlaintextOutput,
	"json":    logging.JSONOutput,
}

// Setup applies level to every subsystem and selects the output format.
// Logs go to stderr.
func Setup(level, format string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	f, ok := formats[format]
	if !ok {
		return errors.Newf("log format %q", format)
	}

	subs := make(map[string]logging.LogLevel, len(Subsystems))
	for _, s := range Subsystems {
		subs[s] = lvl
	}
	logging.SetupLogging(logging.Config{
		Format:          f,
		Stderr:          true,
		Level:           logging.LevelError,
		SubsystemLevels: subs,
	})
	return nil
}

// SetLevel changes one subsystem's level at runtime.
func SetLevel(subsystem, level string) error {
	if err := logging.SetLogLevel(subsystem, level); err != nil {
		return errors.Wrapf(err, "set %s log level", subsystem)
	}
	return nil
}
