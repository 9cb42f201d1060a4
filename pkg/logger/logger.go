// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// ctxKey 上下文键
type ctxKey string

const (
	// RequestIDKey 请求ID
	RequestIDKey ctxKey = "request_id"
	// SolveIDKey 求解ID
	SolveIDKey ctxKey = "solve_id"
)

// Config 日志配置
type Config struct {
	Level      string `koanf:"level" json:"level"`
	Format     string `koanf:"format" json:"format"` // json/console
	Output     string `koanf:"output" json:"output"` // stdout/stderr/file
	FilePath   string `koanf:"file_path" json:"file_path,omitempty"`
	TimeFormat string `koanf:"time_format" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器，只生效一次
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		logger = zerolog.New(openOutput(cfg)).With().Timestamp().Logger()
	})
}

func openOutput(cfg Config) io.Writer {
	var output io.Writer = os.Stderr
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		if cfg.FilePath != "" {
			if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				output = f
			}
		}
	}
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}
	return output
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	c := Get().With()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		c = c.Str("request_id", reqID)
	}
	if solveID, ok := ctx.Value(SolveIDKey).(string); ok {
		c = c.Str("solve_id", solveID)
	}
	l := c.Logger()
	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewNopSchedulerLogger 创建不输出的日志器
func NewNopSchedulerLogger() *SchedulerLogger {
	l := zerolog.Nop()
	return &SchedulerLogger{base: &l}
}

// Logger 返回底层日志器
func (l *SchedulerLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *SchedulerLogger) StartSolve(solveID string, staff, days int, budget time.Duration) {
	l.base.Info().
		Str("solve_id", solveID).
		Int("staff", staff).
		Int("days", days).
		Dur("budget", budget).
		Msg("开始求解排班")
}

// Infeasible 记录已证明无可行解
func (l *SchedulerLogger) Infeasible(solveID, reason string) {
	l.base.Warn().
		Str("solve_id", solveID).
		Str("reason", reason).
		Msg("排班无可行解")
}

// Incumbent 记录找到更优解
func (l *SchedulerLogger) Incumbent(solveID string, worker, iteration int, objective int64) {
	l.base.Debug().
		Str("solve_id", solveID).
		Int("worker", worker).
		Int("iteration", iteration).
		Int64("objective", objective).
		Msg("更新当前最优解")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// SolveComplete 记录求解完成
func (l *SchedulerLogger) SolveComplete(solveID string, duration time.Duration, status string, objective int64) {
	l.base.Info().
		Str("solve_id", solveID).
		Dur("duration", duration).
		Str("status", status).
		Int64("objective", objective).
		Msg("排班求解完成")
}
