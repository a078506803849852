package hdi

import (
	"time"
)

// Host-provided dependencies. Zero fields are filled with defaults by NewBroker.
type Dependencies struct {
	Logger Logger
	Opener Opener
	Clock  Clock
}

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type Clock interface {
	Now() time.Time
}

func (d Dependencies) withDefaults(cfg Config) Dependencies {
	if d.Logger == nil {
		d.Logger = NewLogger(nil, cfg.LogLevel)
	}
	if d.Opener == nil {
		d.Opener = NewSharedLibraryOpener()
	}
	if d.Clock == nil {
		d.Clock = NewSystemClock()
	}
	return d
}
