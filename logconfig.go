package busybee

import (
	"errors"
	"os"

	"github.com/cybozu-go/log"
	"github.com/spf13/pflag"
)

var (
	flgLogFile   = pflag.String("logfile", "", "Log filename")
	flgLogLevel  = pflag.String("loglevel", "", "Log level [critical,error,warning,info,debug]")
	flgLogFormat = pflag.String("logformat", "", "Log format [plain,logfmt,json]")
)

// LogConfig is a struct to configure the default logger.
//
// Use this as a member of the application config struct.
type LogConfig struct {
	Filename string `toml:"filename" json:"filename"`
	Level    string `toml:"level" json:"level"`
	Format   string `toml:"format" json:"format"`
}

// Apply applies configurations to the default logger.
//
// Command-line flags take precedence over the struct members.
// pflag.Parse must be called before Apply.
func (c LogConfig) Apply() error {
	filename := c.Filename
	if *flgLogFile != "" {
		filename = *flgLogFile
	}
	level := c.Level
	if *flgLogLevel != "" {
		level = *flgLogLevel
	}
	if level == "" {
		level = "info"
	}
	format := c.Format
	if *flgLogFormat != "" {
		format = *flgLogFormat
	}
	if format == "" {
		format = "plain"
	}

	logger := log.DefaultLogger()

	switch format {
	case "plain":
		logger.SetFormatter(log.PlainFormat{})
	case "logfmt":
		logger.SetFormatter(log.Logfmt{})
	case "json":
		logger.SetFormatter(log.JSONFormat{})
	default:
		return errors.New("invalid log format: " + format)
	}

	err := logger.SetThresholdByName(level)
	if err != nil {
		return err
	}

	if filename != "" {
		f, err := os.OpenFile(filename, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
	}
	return nil
}
