// Package config 提供配置管理
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/scheduler/policy"
	"github.com/paiban/roster/pkg/scheduler/solver"
)

// EnvPrefix 环境变量前缀，"__" 表示层级，如 ROSTER_SCHEDULER__WORKERS
const EnvPrefix = "ROSTER_"

// Config 应用配置
type Config struct {
	App       AppConfig       `koanf:"app"`
	Log       logger.Config   `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	API       APIConfig       `koanf:"api"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `koanf:"name"`
	Env     string `koanf:"env"`
	Port    int    `koanf:"port"`
	Version string `koanf:"version"`
}

// DatabaseConfig 末尾状态存储配置
type DatabaseConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Name            string        `koanf:"name"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout      time.Duration   `koanf:"timeout"`
	MaxBodyBytes int64           `koanf:"max_body_bytes"`
	CORS         CORSConfig      `koanf:"cors"`
	Keys         []string        `koanf:"keys"` // 为空时不校验API密钥
	RateLimit    RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `koanf:"enabled"`
	Origins []string `koanf:"origins"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	Timeout       time.Duration `koanf:"timeout"`
	Workers       int           `koanf:"workers"`
	MaxIterations int           `koanf:"max_iterations"`
	Seed          int64         `koanf:"seed"`
	Policy        PolicyConfig  `koanf:"policy"`
}

// PolicyConfig 规则策略，取值与命令行参数一致
type PolicyConfig struct {
	Coverage         string `koanf:"coverage"`
	LateEarly        string `koanf:"late_early"`
	Consecutive      string `koanf:"consecutive"`
	ManagerRole      string `koanf:"manager_role"`
	Holiday          string `koanf:"holiday"`
	HolidayTolerance int    `koanf:"holiday_tolerance"`
	MaxConsecutive   int    `koanf:"max_consecutive"`
	Weighting        string `koanf:"weighting"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Default 返回默认配置
func Default() *Config {
	pol := policy.Default()
	return &Config{
		App: AppConfig{
			Name:    "roster",
			Env:     "development",
			Port:    7012,
			Version: "dev",
		},
		Log: logger.DefaultConfig(),
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "roster",
			User:            "roster",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		API: APIConfig{
			Timeout:      60 * time.Second,
			MaxBodyBytes: 1 << 20,
			CORS:         CORSConfig{Enabled: true, Origins: []string{"*"}},
			RateLimit:    RateLimitConfig{Requests: 60, Window: time.Minute},
		},
		Scheduler: SchedulerConfig{
			Timeout: solver.DefaultTimeLimit,
			Workers: 4,
			Policy: PolicyConfig{
				Coverage:         pol.Coverage.String(),
				LateEarly:        pol.LateEarly.String(),
				Consecutive:      pol.Consecutive.String(),
				ManagerRole:      pol.ManagerRole.String(),
				Holiday:          pol.Holiday.String(),
				HolidayTolerance: pol.HolidayTolerance,
				MaxConsecutive:   pol.MaxConsecutive,
				Weighting:        pol.Weighting.String(),
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置：代码默认值，其次是配置文件（可为空），最后是 ROSTER_ 环境变量
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, apperrors.Configuration("config", fmt.Sprintf("不支持的配置格式: %s", path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "读取配置文件失败").WithField("path", path)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "读取环境变量失败")
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "配置解析失败")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey ROSTER_SCHEDULER__POLICY__COVERAGE -> scheduler.policy.coverage
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate 检查配置
func (c *Config) Validate() error {
	ve := &apperrors.ValidationErrors{}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Addf("app.port", "端口 %d 无效", c.App.Port)
	}
	if c.Scheduler.Timeout <= 0 {
		ve.Add("scheduler.timeout", "求解时限必须为正")
	}
	if c.Scheduler.Workers < 1 {
		ve.Addf("scheduler.workers", "并行数必须 >= 1，当前 %d", c.Scheduler.Workers)
	}
	if c.API.RateLimit.Enabled && (c.API.RateLimit.Requests < 1 || c.API.RateLimit.Window <= 0) {
		ve.Add("api.rate_limit", "限流需要正的请求数和时间窗口")
	}
	if _, err := c.Scheduler.Policy.Build(); err != nil {
		ve.Add("scheduler.policy", err.Error())
	}
	if ve.HasErrors() {
		return ve.ToConfigurationError()
	}
	return nil
}

// Build 解析为求解策略
func (p PolicyConfig) Build() (policy.Policy, error) {
	var (
		pol policy.Policy
		err error
	)
	if pol.Coverage, err = policy.ParseStrictness(p.Coverage); err != nil {
		return pol, fmt.Errorf("coverage: %w", err)
	}
	if pol.LateEarly, err = policy.ParseStrictness(p.LateEarly); err != nil {
		return pol, fmt.Errorf("late_early: %w", err)
	}
	if pol.Consecutive, err = policy.ParseStrictness(p.Consecutive); err != nil {
		return pol, fmt.Errorf("consecutive: %w", err)
	}
	if pol.ManagerRole, err = policy.ParseStrictness(p.ManagerRole); err != nil {
		return pol, fmt.Errorf("manager_role: %w", err)
	}
	if pol.Holiday, err = policy.ParseHolidayMode(p.Holiday); err != nil {
		return pol, fmt.Errorf("holiday: %w", err)
	}
	if pol.Weighting, err = policy.ParseWeighting(p.Weighting); err != nil {
		return pol, fmt.Errorf("weighting: %w", err)
	}
	pol.HolidayTolerance = p.HolidayTolerance
	pol.MaxConsecutive = p.MaxConsecutive
	return pol, pol.Validate()
}

// SolverOptions 生成求解选项
func (c *SchedulerConfig) SolverOptions() (solver.Options, error) {
	pol, err := c.Policy.Build()
	if err != nil {
		return solver.Options{}, apperrors.Configuration("scheduler.policy", err.Error())
	}
	return solver.Options{
		Policy:        pol,
		TimeLimit:     c.Timeout,
		Workers:       c.Workers,
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
	}, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
