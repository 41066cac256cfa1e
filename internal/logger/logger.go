package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Setup initializes Logrus with a rotating file plus stdout.
func Setup() {
	// 1) Lumberjack for file rotation
	rotator := &lumberjack.Logger{
		Filename:   "./logs/shule.log",
		MaxSize:    10, // megabytes
		MaxBackups: 7,  // keep up to 7 old files
		MaxAge:     7,  // days
		Compress:   true,
	}

	// 2) Configure Logrus to write to both
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotator))
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(logrus.DebugLevel)
}

// GormLogger returns the standard Logrus logger for GORM
func GormLogger() *logrus.Logger {
	return logrus.StandardLogger()
}
