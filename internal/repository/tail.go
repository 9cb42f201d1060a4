package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/model"
)

// TailRecord 一名员工在某期末尾的实际排班
type TailRecord struct {
	Period    string    `json:"period"` // 该末尾状态适用的期，YYYY-MM
	StaffID   uuid.UUID `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	Labels    []string  `json:"labels"` // 最旧在前
}

// TailStore 末尾状态存取接口
type TailStore interface {
	Save(ctx context.Context, period string, staff []*model.Staff, tail map[string][]string) error
	Load(ctx context.Context, period string) (map[string][]string, error)
}

// TailRepository 基于 PostgreSQL 的末尾状态仓储
type TailRepository struct {
	db TxRunner
}

// NewTailRepository 创建末尾状态仓储
func NewTailRepository(db TxRunner) *TailRepository {
	return &TailRepository{db: db}
}

const upsertTail = `
INSERT INTO roster_tail (period, staff_id, staff_name, labels, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (period, staff_id)
DO UPDATE SET staff_name = EXCLUDED.staff_name, labels = EXCLUDED.labels, updated_at = now()`

// Save 保存下一期使用的末尾状态，同一期重复保存时覆盖
func (r *TailRepository) Save(ctx context.Context, period string, staff []*model.Staff, tail map[string][]string) error {
	records := TailRecords(period, staff, tail)
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertTail)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, rec.Period, rec.StaffID, rec.StaffName, pq.Array(rec.Labels)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存末尾状态失败").WithField("period", period)
	}
	return nil
}

// Load 读取某期的末尾状态，按员工姓名索引；没有记录时返回空映射
func (r *TailRepository) Load(ctx context.Context, period string) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period, staff_id, staff_name, labels FROM roster_tail WHERE period = $1 ORDER BY staff_name`, period)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取末尾状态失败").WithField("period", period)
	}
	defer rows.Close()

	tail := make(map[string][]string)
	for rows.Next() {
		rec, err := scanTail(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "解析末尾状态失败")
		}
		tail[rec.StaffName] = rec.Labels
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取末尾状态失败")
	}
	return tail, nil
}

func scanTail(s Scanner) (*TailRecord, error) {
	var rec TailRecord
	if err := s.Scan(&rec.Period, &rec.StaffID, &rec.StaffName, pq.Array(&rec.Labels)); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TailRecords 按员工顺序展开为记录，缺少末尾状态的员工不写入
func TailRecords(period string, staff []*model.Staff, tail map[string][]string) []TailRecord {
	records := make([]TailRecord, 0, len(staff))
	for _, st := range staff {
		labels, ok := tail[st.Name]
		if !ok {
			continue
		}
		records = append(records, TailRecord{
			Period:    period,
			StaffID:   st.ID,
			StaffName: st.Name,
			Labels:    labels,
		})
	}
	return records
}
