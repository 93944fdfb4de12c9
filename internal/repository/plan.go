// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paigong/paigong/pkg/errors"
)

// PlanRun 一次排班生成的持久化记录
// 请求与响应以 JSONB 存储，便于回放和排查
type PlanRun struct {
	ID          uuid.UUID       `json:"id"`
	Algorithm   string          `json:"algorithm"`
	Seed        int64           `json:"seed"`
	Days        int             `json:"days"`
	Workers     int             `json:"workers"`
	TotalSlots  int             `json:"total_slots"`
	FilledSlots int             `json:"filled_slots"`
	FillRate    float64         `json:"fill_rate"`
	Partial     bool            `json:"partial"`
	Request     json.RawMessage `json:"request,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Duration    time.Duration   `json:"duration"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PlanRunRepositoryInterface 排班记录仓储接口
type PlanRunRepositoryInterface interface {
	Create(ctx context.Context, run *PlanRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*PlanRun, error)
	List(ctx context.Context, filter ListFilter) ([]*PlanRun, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlanRunRepository 排班记录仓储实现
type PlanRunRepository struct {
	db DB
}

// NewPlanRunRepository 创建排班记录仓储
func NewPlanRunRepository(db DB) *PlanRunRepository {
	return &PlanRunRepository{db: db}
}

// Create 写入排班记录
func (r *PlanRunRepository) Create(ctx context.Context, run *PlanRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO plan_runs (
			id, algorithm, seed, days, workers,
			total_slots, filled_slots, fill_rate, partial,
			request, response, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Algorithm, run.Seed, run.Days, run.Workers,
		run.TotalSlots, run.FilledSlots, run.FillRate, run.Partial,
		nullableJSON(run.Request), nullableJSON(run.Response),
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "写入排班记录失败")
	}
	return nil
}

// GetByID 根据ID获取排班记录
func (r *PlanRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*PlanRun, error) {
	query := `
		SELECT id, algorithm, seed, days, workers,
			total_slots, filled_slots, fill_rate, partial,
			request, response, duration_ms, created_at
		FROM plan_runs WHERE id = $1
	`

	run, err := scanPlanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundRef("排班记录", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询排班记录失败")
	}
	return run, nil
}

// List 按过滤条件列出排班记录（时间倒序）
func (r *PlanRunRepository) List(ctx context.Context, filter ListFilter) ([]*PlanRun, int, error) {
	filter.Normalize()

	where := ""
	args := []interface{}{}
	if filter.Algorithm != "" {
		where = "WHERE algorithm = $1"
		args = append(args, filter.Algorithm)
	}

	total := 0
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM plan_runs %s", where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "统计排班记录失败")
	}

	query := fmt.Sprintf(`
		SELECT id, algorithm, seed, days, workers,
			total_slots, filled_slots, fill_rate, partial,
			request, response, duration_ms, created_at
		FROM plan_runs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询排班记录失败")
	}
	defer rows.Close()

	var runs []*PlanRun
	for rows.Next() {
		run, err := scanPlanRun(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "读取排班记录失败")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "遍历排班记录失败")
	}

	return runs, total, nil
}

// Delete 删除排班记录
func (r *PlanRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM plan_runs WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除排班记录失败")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return errors.NotFoundRef("排班记录", id.String())
	}
	return nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPlanRun 扫描单条排班记录
func scanPlanRun(row scanner) (*PlanRun, error) {
	run := &PlanRun{}
	var request, response sql.NullString
	var durationMs int64

	err := row.Scan(
		&run.ID, &run.Algorithm, &run.Seed, &run.Days, &run.Workers,
		&run.TotalSlots, &run.FilledSlots, &run.FillRate, &run.Partial,
		&request, &response, &durationMs, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if request.Valid {
		run.Request = json.RawMessage(request.String)
	}
	if response.Valid {
		run.Response = json.RawMessage(response.String)
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

// nullableJSON 空 JSON 存为 NULL
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
