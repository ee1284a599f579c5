// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// ScheduleRepository 排班归档仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班归档仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create 归档排班结果。同一日期区间的归档版本号递增，
// Version 为 0 时自动取下一个版本号。
func (r *ScheduleRepository) Create(ctx context.Context, sched *model.StoredSchedule) error {
	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	if sched.Version == 0 {
		next, err := r.nextVersion(ctx, sched.StartDate, sched.EndDate)
		if err != nil {
			return err
		}
		sched.Version = next
	}

	resultJSON, _ := json.Marshal(sched.Result)

	query := `
		INSERT INTO schedules (
			id, start_date, end_date, status, objective, version,
			result, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		sched.ID, sched.StartDate, sched.EndDate, sched.Status, sched.Objective, sched.Version,
		resultJSON, sched.CreatedBy, sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "归档排班失败")
	}

	return nil
}

// GetByID 根据ID获取归档排班
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StoredSchedule, error) {
	query := `
		SELECT id, start_date, end_date, status, objective, version,
			result, created_by, created_at, updated_at
		FROM schedules
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanSchedule(r.db.QueryRowContext(ctx, query, id))
}

// GetLatest 获取某日期区间的最新版本归档
func (r *ScheduleRepository) GetLatest(ctx context.Context, startDate, endDate string) (*model.StoredSchedule, error) {
	query := `
		SELECT id, start_date, end_date, status, objective, version,
			result, created_by, created_at, updated_at
		FROM schedules
		WHERE start_date = $1 AND end_date = $2 AND deleted_at IS NULL
		ORDER BY version DESC
		LIMIT 1
	`

	return r.scanSchedule(r.db.QueryRowContext(ctx, query, startDate, endDate))
}

// Update 更新归档排班的状态与结果
func (r *ScheduleRepository) Update(ctx context.Context, sched *model.StoredSchedule) error {
	sched.UpdatedAt = time.Now()

	resultJSON, _ := json.Marshal(sched.Result)

	query := `
		UPDATE schedules SET
			status = $2, objective = $3, result = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		sched.ID, sched.Status, sched.Objective, resultJSON, sched.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新归档排班失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("排班", sched.ID.String())
	}

	return nil
}

// Delete 软删除归档排班
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE schedules SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除归档排班失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("排班", id.String())
	}

	return nil
}

// List 查询归档排班列表
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]*model.StoredSchedule, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询总数失败")
	}

	// 查询列表
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT id, start_date, end_date, status, objective, version,
			result, created_by, created_at, updated_at
		FROM schedules
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询列表失败")
	}
	defer rows.Close()

	var schedules []*model.StoredSchedule
	for rows.Next() {
		s, err := r.scanScheduleRow(rows)
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, s)
	}

	return schedules, total, nil
}

// nextVersion 计算某日期区间的下一个归档版本号
func (r *ScheduleRepository) nextVersion(ctx context.Context, startDate, endDate string) (int, error) {
	query := `
		SELECT COALESCE(MAX(version), 0)
		FROM schedules
		WHERE start_date = $1 AND end_date = $2 AND deleted_at IS NULL
	`

	var current int
	if err := r.db.QueryRowContext(ctx, query, startDate, endDate).Scan(&current); err != nil {
		return 0, errors.Wrap(err, errors.CodeDatabaseError, "查询归档版本失败")
	}
	return current + 1, nil
}

// scanSchedule 扫描单行归档排班
func (r *ScheduleRepository) scanSchedule(row *sql.Row) (*model.StoredSchedule, error) {
	s := &model.StoredSchedule{}
	var resultJSON []byte

	err := row.Scan(
		&s.ID, &s.StartDate, &s.EndDate, &s.Status, &s.Objective, &s.Version,
		&resultJSON, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描归档排班失败")
	}

	json.Unmarshal(resultJSON, &s.Result)

	return s, nil
}

// scanScheduleRow 扫描Rows中的归档排班
func (r *ScheduleRepository) scanScheduleRow(rows *sql.Rows) (*model.StoredSchedule, error) {
	s := &model.StoredSchedule{}
	var resultJSON []byte

	err := rows.Scan(
		&s.ID, &s.StartDate, &s.EndDate, &s.Status, &s.Objective, &s.Version,
		&resultJSON, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描归档排班失败")
	}

	json.Unmarshal(resultJSON, &s.Result)

	return s, nil
}
