// Package normalizer 把外部的排班配置规范化为求解使用的问题快照
package normalizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/roster/pkg/errors"
)

// 默认保留标签
const (
	DefaultRestLabel      = "休"
	DefaultExtraDutyLabel = "出"
)

// RawConfig 外部排班配置（YAML/JSON）
type RawConfig struct {
	Year           int                          `yaml:"year" json:"year" validate:"required,min=1900,max=2999"`
	Month          int                          `yaml:"month" json:"month" validate:"required,min=1,max=12"`
	Shifts         []string                     `yaml:"shifts" json:"shifts" validate:"required,min=1"`
	Early          []string                     `yaml:"early,omitempty" json:"early,omitempty"`
	Late           []string                     `yaml:"late,omitempty" json:"late,omitempty"`
	RestLabel      string                       `yaml:"rest_label,omitempty" json:"rest_label,omitempty"`
	ExtraDutyLabel string                       `yaml:"extra_duty_label,omitempty" json:"extra_duty_label,omitempty"`
	Staff          []RawStaff                   `yaml:"staff" json:"staff" validate:"required,min=1,dive"`
	Requests       map[string]map[string]string `yaml:"requests,omitempty" json:"requests,omitempty"`
	Exclusions     []RawExclusion               `yaml:"exclusions,omitempty" json:"exclusions,omitempty" validate:"dive"`
	WeekdayRules   []RawWeekdayRule             `yaml:"weekday_rules,omitempty" json:"weekday_rules,omitempty" validate:"dive"`
	Tail           map[string][]string          `yaml:"tail,omitempty" json:"tail,omitempty"`
}

// RawStaff 员工配置
type RawStaff struct {
	Name           string            `yaml:"name" json:"name" validate:"required"`
	ID             string            `yaml:"id,omitempty" json:"id,omitempty" validate:"omitempty,uuid"`
	Role           string            `yaml:"role,omitempty" json:"role,omitempty"`
	HolidayTarget  int               `yaml:"holiday_target" json:"holiday_target" validate:"min=0"`
	Skills         map[string]string `yaml:"skills,omitempty" json:"skills,omitempty"`
	TraineeTargets map[string]int    `yaml:"trainee_targets,omitempty" json:"trainee_targets,omitempty"`
}

// RawExclusion 某天停开的班次
type RawExclusion struct {
	Day    int      `yaml:"day" json:"day" validate:"min=1,max=31"`
	Shifts []string `yaml:"shifts" json:"shifts" validate:"required,min=1"`
}

// RawWeekdayRule 按 RRULE 停开班次，如 C 班周日停开：FREQ=WEEKLY;BYDAY=SU
type RawWeekdayRule struct {
	Shift string `yaml:"shift" json:"shift" validate:"required"`
	RRule string `yaml:"rrule" json:"rrule" validate:"required"`
}

// Load 读取 YAML 或 JSON 配置文件
func Load(path string) (*RawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法读取排班配置文件").WithField("path", path)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Parse 解析配置内容
func Parse(data []byte, isJSON bool) (*RawConfig, error) {
	var cfg RawConfig
	var err error
	if isJSON {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "排班配置格式错误")
	}
	return &cfg, nil
}
