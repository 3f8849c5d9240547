package log

import (
	"io"
	"os"

	"opsboard/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(conf *config.Configuration) (*zap.Logger, error) {
	return newLogger(conf, os.Stdout, os.Stderr)
}

// newLogger Warn 以上寫 stderr，其餘寫 stdout；兩者共用同一個門檻
func newLogger(conf *config.Configuration, stdout, stderr io.Writer) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if conf.Log.Level != "" {
		parsed, err := zapcore.ParseLevel(conf.Log.Level)
		if err != nil {
			return nil, err
		}
		lvl = parsed
	}
	atomic := zap.NewAtomicLevelAt(lvl)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.TimeKey = "ts"
	encCfg.CallerKey = "caller"
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch conf.Log.Format {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	stdoutLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return atomic.Enabled(l) && l < zapcore.WarnLevel
	})
	stderrLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return atomic.Enabled(l) && l >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), stdoutLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), stderrLevel),
	)

	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if conf.App.Name != "" {
		logger = logger.With(zap.String("service", conf.App.Name), zap.String("env", conf.App.Env))
	}
	logger.Debug("zap logger ready", zap.String("level", lvl.String()))

	return logger, nil
}
