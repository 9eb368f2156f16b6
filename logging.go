package odatacore

import (
	"os"

	"github.com/theoremus-urban-solutions/odata-core/config"
	"github.com/theoremus-urban-solutions/odata-core/internal/logging"
)

// InitLogging configures the process-wide logger from the logging section.
func InitLogging(cfg config.LoggingConfig) *logging.Logger {
	return logging.InitGlobal(logging.Config{
		Level:  cfg.Level,
		Pretty: cfg.Pretty,
		Output: os.Stdout,
	})
}
