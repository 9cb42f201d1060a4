// Package decoder 把求解得到的排班表还原为按员工、按天的标签表及汇总
package decoder

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/scheduler/solver"
)

// 表格固定列
const (
	NameColumn    = "员工"
	HolidayColumn = "公休"
)

// Row 一名员工的排班行
type Row struct {
	StaffID          uuid.UUID      `json:"staff_id" yaml:"staff_id"`
	Name             string         `json:"name" yaml:"name"`
	Role             string         `json:"role" yaml:"role"`
	Labels           []string       `json:"labels" yaml:"labels,flow"`
	Rests            int            `json:"rests" yaml:"rests"`
	Work             int            `json:"work" yaml:"work"`
	Shifts           map[string]int `json:"shifts" yaml:"shifts"`
	HolidayTarget    int            `json:"holiday_target" yaml:"holiday_target"`
	HolidayDeviation int            `json:"holiday_deviation" yaml:"holiday_deviation"`
}

// Schedule 解码后的一期排班
type Schedule struct {
	ID        uuid.UUID        `json:"id" yaml:"id"`
	Period    string           `json:"period" yaml:"period"`
	Status    string           `json:"status" yaml:"status"`
	Reason    string           `json:"reason,omitempty" yaml:"reason,omitempty"`
	Headers   []string         `json:"headers" yaml:"headers,flow"`
	Rows      []Row            `json:"rows" yaml:"rows"`
	Objective int64            `json:"objective" yaml:"objective"`
	Scores    map[string]int64 `json:"scores,omitempty" yaml:"scores,omitempty"`
	Weights   map[string]int64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Weighting string           `json:"weighting,omitempty" yaml:"weighting,omitempty"`
	Duration  string           `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Decode 解码求解结果。无解时只带状态与原因，不含任何行
func Decode(p *model.Problem, r *solver.Result) *Schedule {
	s := &Schedule{
		ID:      r.ID,
		Period:  p.Period(),
		Status:  r.Status.String(),
		Reason:  r.Reason,
		Headers: headers(p),
	}
	if r.Assignment == nil {
		s.Rows = []Row{}
		return s
	}
	s.Rows = rows(p, r.Assignment)
	s.Objective = r.Objective
	s.Scores = r.Score.Map()
	s.Weights = r.Weights.Map()
	s.Weighting = r.Weighting.String()
	s.Duration = r.Duration.String()
	return s
}

// DecodeAssignment 只解码排班表本身，状态记为 feasible
func DecodeAssignment(p *model.Problem, a *model.Assignment) *Schedule {
	return &Schedule{
		ID:      p.ID,
		Period:  p.Period(),
		Status:  model.StatusFeasible.String(),
		Headers: headers(p),
		Rows:    rows(p, a),
	}
}

func headers(p *model.Problem) []string {
	hs := make([]string, p.NumDays())
	for d, day := range p.Days {
		hs[d] = day.Header()
	}
	return hs
}

func rows(p *model.Problem, a *model.Assignment) []Row {
	vocab := p.Vocabulary
	out := make([]Row, p.NumStaff())
	for s, st := range p.Staff {
		row := Row{
			StaffID:       st.ID,
			Name:          st.Name,
			Role:          st.Role.String(),
			Labels:        make([]string, p.NumDays()),
			Shifts:        make(map[string]int),
			HolidayTarget: st.HolidayTarget,
		}
		for d := range p.Days {
			v := a.Get(s, d)
			row.Labels[d] = vocab.Code(v)
			if model.IsWorking(v) {
				row.Work++
				row.Shifts[vocab.Code(v)]++
			} else {
				row.Rests++
			}
		}
		row.HolidayDeviation = row.Rests - st.HolidayTarget
		out[s] = row
	}
	return out
}

// Records 平铺表格：首行为表头，每名员工一行，末列为休息天数
func (s *Schedule) Records() [][]string {
	records := make([][]string, 0, len(s.Rows)+1)
	header := append([]string{NameColumn}, s.Headers...)
	records = append(records, append(header, HolidayColumn))
	for _, row := range s.Rows {
		rec := make([]string, 0, len(row.Labels)+2)
		rec = append(rec, row.Name)
		rec = append(rec, row.Labels...)
		rec = append(rec, strconv.Itoa(row.Rests))
		records = append(records, rec)
	}
	return records
}

// WriteCSV 以 CSV 导出平铺表格
func (s *Schedule) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(s.Records()); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "导出 CSV 失败")
	}
	return nil
}

// ReadCSV 读取 WriteCSV 导出的表格并还原为排班表，行按员工姓名匹配
func ReadCSV(r io.Reader, p *model.Problem) (*model.Assignment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "排班表 CSV 格式错误")
	}
	if len(records) == 0 {
		return nil, apperrors.InvalidInput("schedule", "排班表为空")
	}

	byName := make(map[string]int, p.NumStaff())
	for s, st := range p.Staff {
		byName[st.Name] = s
	}

	a := model.NewAssignment(p.NumStaff(), p.NumDays())
	seen := make([]bool, p.NumStaff())
	ve := &apperrors.ValidationErrors{}
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		s, ok := byName[strings.TrimSpace(rec[0])]
		if !ok {
			ve.Addf(fmt.Sprintf("line %d", line), "未知员工 %q", rec[0])
			continue
		}
		if seen[s] {
			ve.Addf(fmt.Sprintf("line %d", line), "员工 %q 重复", rec[0])
			continue
		}
		seen[s] = true
		if len(rec) < p.NumDays()+1 {
			ve.Addf(fmt.Sprintf("line %d", line), "应有 %d 天，实际 %d 列", p.NumDays(), len(rec)-1)
			continue
		}
		for d := 0; d < p.NumDays(); d++ {
			id, ok := p.Vocabulary.Lookup(rec[d+1])
			if !ok {
				ve.Addf(fmt.Sprintf("line %d day %d", line, d+1), "未知标签 %q", rec[d+1])
				continue
			}
			a.Set(s, d, id)
		}
	}
	for s, ok := range seen {
		if !ok {
			ve.Addf("schedule", "缺少员工 %q", p.Staff[s].Name)
		}
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}
	return a, nil
}

// NextTail 返回每名员工本期最后 TailDays 天的标签，作为下一期的末尾状态
func NextTail(p *model.Problem, a *model.Assignment) map[string][]string {
	tail := make(map[string][]string, p.NumStaff())
	from := max(p.NumDays()-model.TailDays, 0)
	for s, st := range p.Staff {
		labels := make([]string, 0, model.TailDays)
		for d := from; d < p.NumDays(); d++ {
			labels = append(labels, p.Vocabulary.Code(a.Get(s, d)))
		}
		tail[st.Name] = labels
	}
	return tail
}
