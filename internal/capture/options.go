package capture

import (
	"log/slog"
	"time"

	"clipkeeper/internal/logging"
)

type settings struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a backend.
type Option func(*settings)

// WithLogger routes backend logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for clip names.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "capture")
	return s
}
