package logger

import "go.uber.org/zap"

// NewLogger создает логгер, который пишет одновременно в stdout и в файл.
func NewLogger() *zap.Logger {
	dualConfig := zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.DebugLevel),
		OutputPaths:      []string{"stdout", "./logs/app.log"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    zap.NewProductionEncoderConfig(),
	}

	dualLogger, err := dualConfig.Build()
	if err != nil {
		panic(err)
	}

	return dualLogger
}

// Named возвращает именованный логгер для подсистемы.
func Named(base *zap.Logger, name string) *zap.Logger {
	return base.Named(name)
}
