// Package logging configures the process-wide zap logger.
//
// Every scout process (CLI, web UI, stdio tool servers) appends to the
// same flat log file, so stdio servers never write diagnostics to stdout.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config describes how the logger should behave.
type Config struct {
	Level       string   // debug, info, warn, error
	Format      string   // console or json
	OutputPaths []string // file paths, or "stdout"/"stderr"
}

var (
	mu      sync.Mutex
	logger  *zap.Logger
	closers []*os.File
)

// Init configures the global logger. Calling Init again replaces the
// previous logger and closes its files.
func Init(cfg Config) error {
	core, files, err := buildCore(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	closeFiles()
	closers = files
	logger = zap.New(core, zap.AddCaller())
	return nil
}

func buildCore(cfg Config) (zapcore.Core, []*os.File, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	var (
		syncers []zapcore.WriteSyncer
		files   []*os.File
	)
	for _, out := range outputs {
		ws, f, err := openWriter(out)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, nil, err
		}
		if f != nil {
			files = append(files, f)
		}
		syncers = append(syncers, ws)
	}

	return zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(syncers...), parseLevel(cfg.Level)), files, nil
}

func openWriter(path string) (zapcore.WriteSyncer, *os.File, error) {
	switch strings.ToLower(path) {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil, nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return zapcore.AddSync(f), f, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the global logger. Before Init it is a no-op logger, so
// library code and tests can log unconditionally.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Named returns a child logger for a component.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered entries and closes log files.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	if logger != nil {
		// Syncing stderr/stdout fails on some platforms; only file errors matter.
		_ = logger.Sync()
	}
	for _, f := range closers {
		err = errors.Join(err, f.Sync(), f.Close())
	}
	closers = nil
	logger = nil
	return err
}

func closeFiles() {
	for _, f := range closers {
		f.Close()
	}
	closers = nil
}
