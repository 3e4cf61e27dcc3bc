package mainboilerplate

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LogConfig configures handling of application log events.
type LogConfig struct {
	Level  string `long:"level" env:"LEVEL" default:"warn" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
	Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" choice:"color" description:"Logging output format"`
}

// InitLog configures the logger, and fails if the LogConfig is invalid.
func InitLog(cfg LogConfig) {
	Must(ApplyLogConfig(cfg), "invalid log configuration")
}

// ApplyLogConfig configures the logger from |cfg|.
func ApplyLogConfig(cfg LogConfig) error {
	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	default:
		return errors.Errorf("unrecognized log format %q", cfg.Format)
	}

	var lvl, err = log.ParseLevel(cfg.Level)
	if err != nil {
		return errors.WithMessage(err, "parsing log level")
	}
	log.SetLevel(lvl)
	return nil
}
