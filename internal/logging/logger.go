package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"marksheet/internal/config"
)

// Options 日志构建参数
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New 按参数创建 zap 日志
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder
	if format == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if colorOutput(opts.OutputPaths) {
			encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       opts.Development,
		DisableCaller:     !opts.Development && level > zapcore.DebugLevel,
		DisableStacktrace: !opts.Development,
		Encoding:          format,
		EncoderConfig:     encoderCfg,
		OutputPaths:       defaultSlice(opts.OutputPaths, "stdout"),
		ErrorOutputPaths:  defaultSlice(opts.ErrorOutputPaths, "stderr"),
	}
	return cfg.Build()
}

// NewFromConfig 按应用配置创建日志：输出到 stdout 与 <dataDir>/logs/marksheet.log
func NewFromConfig(cfg *config.AppConfig, dataDir string) (*zap.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputPaths := []string{"stdout"}
	errorOutputs := []string{"stderr"}
	if dataDir != "" {
		logDir := filepath.Join(dataDir, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(logDir, "marksheet.log")
		outputPaths = append(outputPaths, logPath)
		errorOutputs = append(errorOutputs, logPath)
	}

	return New(Options{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputs,
		Development:      cfg.Server.DevMode,
	})
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("log level: unsupported value %q", level)
}

// colorOutput 仅当全部输出都是终端时启用彩色级别
func colorOutput(paths []string) bool {
	paths = defaultSlice(paths, "stdout")
	for _, p := range paths {
		switch p {
		case "stdout":
			if !isTerminal(os.Stdout.Fd()) {
				return false
			}
		case "stderr":
			if !isTerminal(os.Stderr.Fd()) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func defaultSlice(value []string, fallback string) []string {
	if len(value) == 0 {
		return []string{fallback}
	}
	return append([]string{}, value...)
}
