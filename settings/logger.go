package settings

import (
	"io"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the shared process logger, configured by ResetSettings.
var Logger zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// lumberjack lets us rotate log files automatically
func makeFileWriter(logpath string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path.Join(logpath, "propdefs.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28,    // days
		Compress:   false, // disabled by default
	}
}

func setupLogger(s *PDSettings) {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if s.LogPath != "" {
		if err := os.MkdirAll(s.LogPath, 0770); err != nil {
			// keep stderr logging rather than dying over a log directory
			Logger.Warn().Err(err).Str("path", s.LogPath).Msg("could not create log path, file logging disabled")
		} else {
			out = io.MultiWriter(os.Stderr, makeFileWriter(s.LogPath))
		}
	}
	Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}
