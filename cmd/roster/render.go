package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/scheduler/decoder"
	"github.com/paiban/roster/pkg/stats"
	"github.com/paiban/roster/pkg/validator"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	restStyle    = cellStyle.Foreground(lipgloss.Color("#888888"))
	weekendStyle = headerStyle.Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// writeSchedule 按格式输出排班
func writeSchedule(w io.Writer, s *decoder.Schedule, format string) error {
	switch strings.ToLower(format) {
	case "table", "":
		_, err := fmt.Fprintln(w, renderSchedule(s))
		return err
	case "csv":
		return s.WriteCSV(w)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	default:
		return apperrors.InvalidInput("format", "不支持的输出格式: "+format)
	}
}

// renderSchedule 渲染排班表与汇总行
func renderSchedule(s *decoder.Schedule) string {
	records := s.Records()
	restLabel := restLabelOf(s.Rows)
	weekend := make(map[int]bool)
	for i, h := range s.Headers {
		if strings.HasSuffix(h, "(Sat)") || strings.HasSuffix(h, "(Sun)") {
			weekend[i+1] = true
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(records[0]...).
		Rows(records[1:]...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if weekend[col] {
					return weekendStyle
				}
				return headerStyle
			}
			if i := row - firstDataRow; i >= 0 && i < len(records)-1 && col < len(records[i+1]) {
				if restLabel != "" && records[i+1][col] == restLabel {
					return restStyle
				}
			}
			return cellStyle
		})

	summary := fmt.Sprintf("%s  %s  目标值 %d  耗时 %s", s.Period, s.Status, s.Objective, s.Duration)
	if s.Reason != "" {
		summary += "  " + s.Reason
	}
	if len(s.Scores) > 0 {
		summary += "\n" + formatScores(s.Scores)
	}
	return t.Render() + "\n" + summaryStyle.Render(summary)
}

// firstDataRow 数据行在 StyleFunc 中的起始下标
const firstDataRow = table.HeaderRow + 1

// restLabelOf 行内不属于任何班次统计的标签即休息标签
func restLabelOf(rows []decoder.Row) string {
	for _, row := range rows {
		for _, l := range row.Labels {
			if _, isShift := row.Shifts[l]; !isShift {
				return l
			}
		}
	}
	return ""
}

func formatScores(scores map[string]int64) string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatInt(scores[k], 10))
	}
	return strings.Join(parts, " ")
}

// renderConflicts 渲染冲突列表
func renderConflicts(conflicts []validator.Conflict) string {
	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		day := ""
		if c.Day > 0 {
			day = strconv.Itoa(c.Day)
		}
		rows = append(rows, []string{c.Severity, string(c.Type), c.Staff, day, c.Shift, c.Message})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("级别", "类型", "员工", "日", "班次", "说明").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

// renderFairness 渲染公平性统计
func renderFairness(m *stats.FairnessMetrics) string {
	rows := make([][]string, 0, len(m.StaffStats))
	for _, st := range m.StaffStats {
		rows = append(rows, []string{
			st.Name,
			strconv.Itoa(st.Work),
			strconv.Itoa(st.Rests),
			strconv.Itoa(st.EarlyShifts),
			strconv.Itoa(st.LateShifts),
			strconv.Itoa(st.WeekendWork),
			fmt.Sprintf("%+.1f%%", st.Deviation),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("员工", "出勤", "休息", "早班", "晚班", "周末", "偏差").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	summary := fmt.Sprintf("休息基尼 %.3f  晚班基尼 %.3f  周末基尼 %.3f  公休偏差 %d  综合 %.1f",
		m.RestGini, m.LateShiftGini, m.WeekendWorkGini, m.HolidayError, m.OverallFairnessScore)
	return t.Render() + "\n" + summaryStyle.Render(summary)
}
