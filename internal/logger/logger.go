package logger

import (
	"github.com/sirupsen/logrus"
)

// Log по умолчанию указывает на стандартный логгер, чтобы пакеты и тесты работали без Init.
var Log = logrus.StandardLogger()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Setup настраивает логгер под окружение приложения.
func Setup(env, level string) {
	if level == "" {
		level = "info"
		if env == "development" {
			level = "debug"
		}
	}

	Init(level)
	if env != "production" {
		SetTextFormatter()
	}
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
