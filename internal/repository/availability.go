// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labroster/labroster/pkg/errors"
	"github.com/labroster/labroster/pkg/model"
)

// AvailabilityRepository 可用性记录仓储
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository 创建可用性记录仓储
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Create 创建可用性记录
func (r *AvailabilityRepository) Create(ctx context.Context, rec *model.AvailabilityRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `
		INSERT INTO availability_records (
			id, initials, date, reason, is_holiday, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Initials, rec.Date, rec.Reason, rec.IsHoliday, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建可用性记录失败")
	}

	return nil
}

// GetByID 根据ID获取可用性记录
func (r *AvailabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AvailabilityRecord, error) {
	query := `
		SELECT id, initials, date, reason, is_holiday, created_at, updated_at
		FROM availability_records
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanRecord(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新可用性记录
func (r *AvailabilityRepository) Update(ctx context.Context, rec *model.AvailabilityRecord) error {
	rec.UpdatedAt = time.Now()

	query := `
		UPDATE availability_records SET
			initials = $2, date = $3, reason = $4, is_holiday = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Initials, rec.Date, rec.Reason, rec.IsHoliday, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新可用性记录失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("可用性记录", rec.ID.String())
	}

	return nil
}

// Delete 软删除可用性记录
func (r *AvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE availability_records SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除可用性记录失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("可用性记录", id.String())
	}

	return nil
}

// List 查询可用性记录列表
func (r *AvailabilityRepository) List(ctx context.Context, filter ListFilter) ([]*model.AvailabilityRecord, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	// 人员过滤
	if initials, ok := filter.Extra["initials"].(string); ok && initials != "" {
		conditions = append(conditions, fmt.Sprintf("initials = $%d", argIndex))
		args = append(args, initials)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM availability_records WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询总数失败")
	}

	// 查询列表
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "date"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "asc"
	}

	query := fmt.Sprintf(`
		SELECT id, initials, date, reason, is_holiday, created_at, updated_at
		FROM availability_records
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

	var records []*model.AvailabilityRecord
	for rows.Next() {
		rec, err := r.scanRecordRow(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}

	return records, total, nil
}

// ListByDateRange 获取日期区间内的全部记录，供构建可用性快照
func (r *AvailabilityRepository) ListByDateRange(ctx context.Context, start, end string) ([]model.AvailabilityRecord, error) {
	query := `
		SELECT id, initials, date, reason, is_holiday, created_at, updated_at
		FROM availability_records
		WHERE date >= $1 AND date <= $2 AND deleted_at IS NULL
		ORDER BY date, initials
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询可用性记录失败")
	}
	defer rows.Close()

	var records []model.AvailabilityRecord
	for rows.Next() {
		rec, err := r.scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// scanRecord 扫描单行可用性记录
func (r *AvailabilityRepository) scanRecord(row *sql.Row) (*model.AvailabilityRecord, error) {
	rec := &model.AvailabilityRecord{}

	err := row.Scan(
		&rec.ID, &rec.Initials, &rec.Date, &rec.Reason, &rec.IsHoliday, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描可用性记录失败")
	}

	return rec, nil
}

// scanRecordRow 扫描Rows中的可用性记录
func (r *AvailabilityRepository) scanRecordRow(rows *sql.Rows) (*model.AvailabilityRecord, error) {
	rec := &model.AvailabilityRecord{}

	err := rows.Scan(
		&rec.ID, &rec.Initials, &rec.Date, &rec.Reason, &rec.IsHoliday, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描可用性记录失败")
	}

	return rec, nil
}
