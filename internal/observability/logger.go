package observability

import (
	"github.com/danmuck/pktwire/internal/logging"
	"github.com/rs/zerolog"
)

// InitLogger applies the runtime logging profile and tags every event with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	return logging.Component(app)
}
