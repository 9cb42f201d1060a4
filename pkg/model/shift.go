// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"strings"
)

// ShiftID 班次编号，Rest 固定为 0，ExtraDuty 固定为最后一个
type ShiftID int

const (
	// NoShift 未指定（用于请求与休息前态）
	NoShift ShiftID = -1
	// Rest 休息
	Rest ShiftID = 0
)

// Category 班次类别
type Category int

const (
	CategoryNeutral Category = iota // 普通
	CategoryEarly                   // 早班
	CategoryLate                    // 晚班
	CategoryRest                    // 休息（仅用于节奏判断）
)

// String 返回类别名
func (c Category) String() string {
	switch c {
	case CategoryEarly:
		return "early"
	case CategoryLate:
		return "late"
	case CategoryRest:
		return "rest"
	default:
		return "neutral"
	}
}

// ShiftType 班次类型
type ShiftType struct {
	ID       ShiftID  `json:"id"`
	Code     string   `json:"code"`
	Category Category `json:"category"`
	Reserved bool     `json:"reserved"` // Rest / ExtraDuty
}

// Vocabulary 班次词表，按编号索引
// 0 = Rest，1..N = 配置的班次，N+1 = ExtraDuty
type Vocabulary struct {
	types  []ShiftType
	byCode map[string]ShiftID
}

// NewVocabulary 创建班次词表，codes 必须已去重且不含保留标签
func NewVocabulary(restCode, extraCode string, codes []string) *Vocabulary {
	v := &Vocabulary{
		types:  make([]ShiftType, 0, len(codes)+2),
		byCode: make(map[string]ShiftID, len(codes)+2),
	}
	v.add(ShiftType{Code: restCode, Category: CategoryRest, Reserved: true})
	for _, c := range codes {
		v.add(ShiftType{Code: c, Category: CategoryNeutral})
	}
	v.add(ShiftType{Code: extraCode, Category: CategoryNeutral, Reserved: true})
	return v
}

func (v *Vocabulary) add(t ShiftType) {
	t.ID = ShiftID(len(v.types))
	v.types = append(v.types, t)
	v.byCode[t.Code] = t.ID
}

// SetCategory 设置班次类别，保留班次不可修改
func (v *Vocabulary) SetCategory(id ShiftID, c Category) error {
	if !v.Valid(id) || v.types[id].Reserved {
		return fmt.Errorf("班次 %d 不可设置类别", id)
	}
	v.types[id].Category = c
	return nil
}

// Len 全部取值数量（含 Rest 与 ExtraDuty）
func (v *Vocabulary) Len() int { return len(v.types) }

// ExtraDuty 出勤（非覆盖）班次编号
func (v *Vocabulary) ExtraDuty() ShiftID { return ShiftID(len(v.types) - 1) }

// Valid 编号是否有效
func (v *Vocabulary) Valid(id ShiftID) bool { return id >= 0 && int(id) < len(v.types) }

// Get 按编号获取班次
func (v *Vocabulary) Get(id ShiftID) ShiftType { return v.types[id] }

// Code 返回班次标签
func (v *Vocabulary) Code(id ShiftID) string {
	if !v.Valid(id) {
		return ""
	}
	return v.types[id].Code
}

// Lookup 按标签查找
func (v *Vocabulary) Lookup(code string) (ShiftID, bool) {
	id, ok := v.byCode[strings.TrimSpace(code)]
	return id, ok
}

// Duties 配置的覆盖班次编号 1..N
func (v *Vocabulary) Duties() []ShiftID {
	ids := make([]ShiftID, 0, len(v.types)-2)
	for i := 1; i < len(v.types)-1; i++ {
		ids = append(ids, ShiftID(i))
	}
	return ids
}

// IsDuty 是否是需要覆盖的配置班次
func (v *Vocabulary) IsDuty(id ShiftID) bool {
	return id > Rest && id < v.ExtraDuty()
}

// CategoryOf 返回班次类别
func (v *Vocabulary) CategoryOf(id ShiftID) Category {
	if !v.Valid(id) {
		return CategoryNeutral
	}
	return v.types[id].Category
}

// IsWorking 非休息即出勤
func IsWorking(id ShiftID) bool { return id > Rest }

// Assignment 排班结果：Grid[员工][日期] = 班次编号
type Assignment struct {
	Grid [][]ShiftID `json:"grid"`
}

// NewAssignment 创建全部为 Rest 的分配
func NewAssignment(staff, days int) *Assignment {
	grid := make([][]ShiftID, staff)
	for s := range grid {
		grid[s] = make([]ShiftID, days)
	}
	return &Assignment{Grid: grid}
}

// Get 获取单元格
func (a *Assignment) Get(s, d int) ShiftID { return a.Grid[s][d] }

// Set 设置单元格
func (a *Assignment) Set(s, d int, id ShiftID) { a.Grid[s][d] = id }

// Staff 员工数
func (a *Assignment) Staff() int { return len(a.Grid) }

// Days 天数
func (a *Assignment) Days() int {
	if len(a.Grid) == 0 {
		return 0
	}
	return len(a.Grid[0])
}

// Clone 深拷贝
func (a *Assignment) Clone() *Assignment {
	c := &Assignment{Grid: make([][]ShiftID, len(a.Grid))}
	for s, row := range a.Grid {
		c.Grid[s] = append([]ShiftID(nil), row...)
	}
	return c
}

// RestCount 员工休息天数
func (a *Assignment) RestCount(s int) int {
	n := 0
	for _, v := range a.Grid[s] {
		if v == Rest {
			n++
		}
	}
	return n
}

// CountOn 某天某班次的人数
func (a *Assignment) CountOn(d int, id ShiftID) int {
	n := 0
	for s := range a.Grid {
		if a.Grid[s][d] == id {
			n++
		}
	}
	return n
}
