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

// ShiftRepository 班次仓储
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// Create 创建班次
func (r *ShiftRepository) Create(ctx context.Context, shift *model.ShiftDefinition) error {
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	now := time.Now()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	daysJSON, _ := json.Marshal(shift.DaysOfWeek)

	query := `
		INSERT INTO shifts (
			id, name, role_required, is_flexible, start_time, end_time,
			can_remain_open, days_of_week, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.Name, shift.RoleRequired, shift.IsFlexible, shift.StartTime, shift.EndTime,
		shift.CanRemainOpen, daysJSON, shift.CreatedAt, shift.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建班次失败")
	}

	return nil
}

// GetByID 根据ID获取班次
func (r *ShiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShiftDefinition, error) {
	query := `
		SELECT id, name, role_required, is_flexible, start_time, end_time,
			can_remain_open, days_of_week, created_at, updated_at
		FROM shifts
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanShift(r.db.QueryRowContext(ctx, query, id))
}

// GetByName 根据名称获取班次
func (r *ShiftRepository) GetByName(ctx context.Context, name string) (*model.ShiftDefinition, error) {
	query := `
		SELECT id, name, role_required, is_flexible, start_time, end_time,
			can_remain_open, days_of_week, created_at, updated_at
		FROM shifts
		WHERE name = $1 AND deleted_at IS NULL
	`

	return r.scanShift(r.db.QueryRowContext(ctx, query, name))
}

// Update 更新班次
func (r *ShiftRepository) Update(ctx context.Context, shift *model.ShiftDefinition) error {
	shift.UpdatedAt = time.Now()

	daysJSON, _ := json.Marshal(shift.DaysOfWeek)

	query := `
		UPDATE shifts SET
			name = $2, role_required = $3, is_flexible = $4, start_time = $5, end_time = $6,
			can_remain_open = $7, days_of_week = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		shift.ID, shift.Name, shift.RoleRequired, shift.IsFlexible, shift.StartTime, shift.EndTime,
		shift.CanRemainOpen, daysJSON, shift.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新班次失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("班次", shift.ID.String())
	}

	return nil
}

// Delete 软删除班次
func (r *ShiftRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE shifts SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除班次失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("班次", id.String())
	}

	return nil
}

// List 查询班次列表
func (r *ShiftRepository) List(ctx context.Context, filter ListFilter) ([]*model.ShiftDefinition, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	// 角色过滤
	if role, ok := filter.Extra["role_required"].(string); ok && role != "" {
		conditions = append(conditions, fmt.Sprintf("role_required = $%d", argIndex))
		args = append(args, role)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM shifts WHERE %s", whereClause)
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
		orderDir = "asc"
	}

	query := fmt.Sprintf(`
		SELECT id, name, role_required, is_flexible, start_time, end_time,
			can_remain_open, days_of_week, created_at, updated_at
		FROM shifts
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

	var shifts []*model.ShiftDefinition
	for rows.Next() {
		s, err := r.scanShiftRow(rows)
		if err != nil {
			return nil, 0, err
		}
		shifts = append(shifts, s)
	}

	return shifts, total, nil
}

// ListAll 获取全部班次，按创建顺序排列，即排班目录顺序
func (r *ShiftRepository) ListAll(ctx context.Context) ([]*model.ShiftDefinition, error) {
	query := `
		SELECT id, name, role_required, is_flexible, start_time, end_time,
			can_remain_open, days_of_week, created_at, updated_at
		FROM shifts
		WHERE deleted_at IS NULL
		ORDER BY created_at, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询班次失败")
	}
	defer rows.Close()

	var shifts []*model.ShiftDefinition
	for rows.Next() {
		s, err := r.scanShiftRow(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}

	return shifts, rows.Err()
}

// scanShift 扫描单行班次数据
func (r *ShiftRepository) scanShift(row *sql.Row) (*model.ShiftDefinition, error) {
	s := &model.ShiftDefinition{}
	var daysJSON []byte

	err := row.Scan(
		&s.ID, &s.Name, &s.RoleRequired, &s.IsFlexible, &s.StartTime, &s.EndTime,
		&s.CanRemainOpen, &daysJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描班次数据失败")
	}

	json.Unmarshal(daysJSON, &s.DaysOfWeek)

	return s, nil
}

// scanShiftRow 扫描Rows中的班次数据
func (r *ShiftRepository) scanShiftRow(rows *sql.Rows) (*model.ShiftDefinition, error) {
	s := &model.ShiftDefinition{}
	var daysJSON []byte

	err := rows.Scan(
		&s.ID, &s.Name, &s.RoleRequired, &s.IsFlexible, &s.StartTime, &s.EndTime,
		&s.CanRemainOpen, &daysJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描班次数据失败")
	}

	json.Unmarshal(daysJSON, &s.DaysOfWeek)

	return s, nil
}
