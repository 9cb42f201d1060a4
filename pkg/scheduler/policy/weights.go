package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Tier 目标层级，数值越小优先级越高
type Tier int

const (
	TierCoverage Tier = iota
	TierLateEarly
	TierConsecutive
	TierHoliday
	TierTraineeQuota
	TierManagerRole
	TierRegularCoverage
	TierRestStreak
	TierRhythm

	NumTiers = int(TierRhythm) + 1
)

var tierNames = [NumTiers]string{
	"coverage",
	"late_early",
	"consecutive",
	"holiday",
	"trainee_quota",
	"manager_role",
	"regular_coverage",
	"rest_streak",
	"rhythm",
}

// String 返回层名
func (t Tier) String() string {
	if int(t) < 0 || int(t) >= NumTiers {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Tiers 全部层，高优先级在前
func Tiers() []Tier {
	ts := make([]Tier, NumTiers)
	for i := range ts {
		ts[i] = Tier(i)
	}
	return ts
}

// Score 各层得分，越大越好
type Score [NumTiers]int64

// Add 累加
func (s *Score) Add(o Score) {
	for i := range s {
		s[i] += o[i]
	}
}

// Sub 相减
func (s *Score) Sub(o Score) {
	for i := range s {
		s[i] -= o[i]
	}
}

// Compare 逐层比较，返回 -1/0/1
func (s Score) Compare(o Score) int {
	for i := range s {
		if s[i] != o[i] {
			if s[i] < o[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// FirstDiff 返回首个不同的层，相同时返回 -1
func (s Score) FirstDiff(o Score) int {
	for i := range s {
		if s[i] != o[i] {
			return i
		}
	}
	return -1
}

// Map 以层名为键输出
func (s Score) Map() map[string]int64 {
	m := make(map[string]int64, NumTiers)
	for i, v := range s {
		m[tierNames[i]] = v
	}
	return m
}

// String 紧凑格式
func (s Score) String() string {
	parts := make([]string, 0, NumTiers)
	for i, v := range s {
		parts = append(parts, fmt.Sprintf("%s=%d", tierNames[i], v))
	}
	return strings.Join(parts, " ")
}

// Bounds 各层得分的取值范围
type Bounds struct {
	Lo Score
	Hi Score
}

// Swing 某层的最大变化量
func (b Bounds) Swing(t Tier) int64 {
	return b.Hi[t] - b.Lo[t]
}

// ErrWeightOverflow 权重超出 int64
var ErrWeightOverflow = errors.New("分层权重溢出 int64")

// Weights 分层权重
type Weights [NumTiers]int64

// ComputeWeights 按实例规模自底向上计算权重：
// W[最低层] = 1，W[k] = 1 + Σ_{j>k} W[j]·swing_j。
// 于是第 k 层的一个单位严格大于所有更低层变化之和。
func ComputeWeights(b Bounds) (Weights, error) {
	var w Weights
	var below int64 // Σ_{j>k} W[j]·swing_j
	for k := NumTiers - 1; k >= 0; k-- {
		if below == math.MaxInt64 {
			return w, ErrWeightOverflow
		}
		w[k] = below + 1
		swing := b.Swing(Tier(k))
		if swing < 0 {
			return w, fmt.Errorf("层 %s 的取值范围无效: [%d, %d]", Tier(k), b.Lo[k], b.Hi[k])
		}
		if swing > 0 && w[k] > (math.MaxInt64-below)/swing {
			return w, ErrWeightOverflow
		}
		below += w[k] * swing
	}
	// 标量值本身也不能溢出
	if _, err := w.checkedScalar(b.Lo); err != nil {
		return w, err
	}
	if _, err := w.checkedScalar(b.Hi); err != nil {
		return w, err
	}
	return w, nil
}

// Scalar 标量目标值，调用方保证在范围内
func (w Weights) Scalar(s Score) int64 {
	var v int64
	for i := range s {
		v += w[i] * s[i]
	}
	return v
}

// Map 以层名为键输出，全零（词典序比较）时返回 nil
func (w Weights) Map() map[string]int64 {
	if w == (Weights{}) {
		return nil
	}
	return Score(w).Map()
}

func (w Weights) checkedScalar(s Score) (int64, error) {
	var v int64
	for i := range s {
		if s[i] == 0 {
			continue
		}
		if abs64(s[i]) > math.MaxInt64/w[i] {
			return 0, ErrWeightOverflow
		}
		term := w[i] * s[i]
		if (term > 0 && v > math.MaxInt64-term) || (term < 0 && v < math.MinInt64-term) {
			return 0, ErrWeightOverflow
		}
		v += term
	}
	return v, nil
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// Comparator 按策略比较两个得分
type Comparator struct {
	Mode    Weighting
	Weights Weights
}

// Compare 返回 -1/0/1
func (c Comparator) Compare(a, b Score) int {
	if c.Mode == Lexicographic {
		return a.Compare(b)
	}
	x, y := c.Weights.Scalar(a), c.Weights.Scalar(b)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
