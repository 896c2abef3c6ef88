package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEntry records one settings change made through the API. Request
// bodies are never recorded since they may carry provider secrets.
type AuditEntry struct {
	RequestID  string
	UserID     string
	Method     string
	Path       string
	Status     int
	DurationMS int64
}

// AuditConfig selects the audit file and its rotation.
type AuditConfig struct {
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AuditLog writes one JSON line per entry to a size-rotated file.
type AuditLog struct {
	file   *lumberjack.Logger
	logger *zap.Logger
}

// NewAuditLog opens the audit file described by cfg.
func NewAuditLog(cfg AuditConfig) *AuditLog {
	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zapcore.InfoLevel)

	return &AuditLog{file: file, logger: zap.New(core)}
}

// Record writes entry.
func (l *AuditLog) Record(entry AuditEntry) {
	l.logger.Info("settings_change",
		zap.String("requestId", entry.RequestID),
		zap.String("userId", entry.UserID),
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.Int("status", entry.Status),
		zap.Int64("durationMs", entry.DurationMS),
	)
}

// Rotate starts a new file, keeping the current one as a backup.
func (l *AuditLog) Rotate() error {
	return l.file.Rotate()
}

// Close flushes and closes the audit file.
func (l *AuditLog) Close() error {
	_ = l.logger.Sync()
	return l.file.Close()
}
