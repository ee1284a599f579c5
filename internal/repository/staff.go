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

// StaffRepository 人员仓储
type StaffRepository struct {
	db DB
}

// NewStaffRepository 创建人员仓储
func NewStaffRepository(db DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create 创建人员
func (r *StaffRepository) Create(ctx context.Context, staff *model.StaffMember) error {
	if staff.ID == uuid.Nil {
		staff.ID = uuid.New()
	}
	now := time.Now()
	staff.CreatedAt = now
	staff.UpdatedAt = now

	trainedJSON, _ := json.Marshal(staff.TrainedShifts)
	constraintsJSON, _ := json.Marshal(staff.Constraints)

	query := `
		INSERT INTO staff (
			id, initials, start_time, end_time, role, is_casual,
			trained_shifts, constraints, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		staff.ID, staff.Initials, staff.StartTime, staff.EndTime, staff.Role, staff.IsCasual,
		trainedJSON, constraintsJSON, staff.CreatedAt, staff.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "创建人员失败")
	}

	return nil
}

// GetByID 根据ID获取人员
func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	query := `
		SELECT id, initials, start_time, end_time, role, is_casual,
			trained_shifts, constraints, created_at, updated_at
		FROM staff
		WHERE id = $1 AND deleted_at IS NULL
	`

	return r.scanStaff(r.db.QueryRowContext(ctx, query, id))
}

// GetByInitials 根据缩写获取人员
func (r *StaffRepository) GetByInitials(ctx context.Context, initials string) (*model.StaffMember, error) {
	query := `
		SELECT id, initials, start_time, end_time, role, is_casual,
			trained_shifts, constraints, created_at, updated_at
		FROM staff
		WHERE initials = $1 AND deleted_at IS NULL
	`

	return r.scanStaff(r.db.QueryRowContext(ctx, query, initials))
}

// Update 更新人员
func (r *StaffRepository) Update(ctx context.Context, staff *model.StaffMember) error {
	staff.UpdatedAt = time.Now()

	trainedJSON, _ := json.Marshal(staff.TrainedShifts)
	constraintsJSON, _ := json.Marshal(staff.Constraints)

	query := `
		UPDATE staff SET
			initials = $2, start_time = $3, end_time = $4, role = $5, is_casual = $6,
			trained_shifts = $7, constraints = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		staff.ID, staff.Initials, staff.StartTime, staff.EndTime, staff.Role, staff.IsCasual,
		trainedJSON, constraintsJSON, staff.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "更新人员失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("人员", staff.ID.String())
	}

	return nil
}

// Delete 软删除人员
func (r *StaffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE staff SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "删除人员失败")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.NotFound("人员", id.String())
	}

	return nil
}

// List 查询人员列表
func (r *StaffRepository) List(ctx context.Context, filter ListFilter) ([]*model.StaffMember, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(initials ILIKE $%d OR role ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	// 角色过滤
	if role, ok := filter.Extra["role"].(string); ok && role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIndex))
		args = append(args, role)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM staff WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询总数失败")
	}

	// 查询列表
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "initials"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "asc"
	}

	query := fmt.Sprintf(`
		SELECT id, initials, start_time, end_time, role, is_casual,
			trained_shifts, constraints, created_at, updated_at
		FROM staff
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

	var members []*model.StaffMember
	for rows.Next() {
		m, err := r.scanStaffRow(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, m)
	}

	return members, total, nil
}

// ListAll 获取全部人员，按缩写排序，供排班引擎加载名单
func (r *StaffRepository) ListAll(ctx context.Context) ([]*model.StaffMember, error) {
	query := `
		SELECT id, initials, start_time, end_time, role, is_casual,
			trained_shifts, constraints, created_at, updated_at
		FROM staff
		WHERE deleted_at IS NULL
		ORDER BY initials
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询人员失败")
	}
	defer rows.Close()

	var members []*model.StaffMember
	for rows.Next() {
		m, err := r.scanStaffRow(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// scanStaff 扫描单行人员数据
func (r *StaffRepository) scanStaff(row *sql.Row) (*model.StaffMember, error) {
	m := &model.StaffMember{}
	var trainedJSON, constraintsJSON []byte

	err := row.Scan(
		&m.ID, &m.Initials, &m.StartTime, &m.EndTime, &m.Role, &m.IsCasual,
		&trainedJSON, &constraintsJSON, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描人员数据失败")
	}

	json.Unmarshal(trainedJSON, &m.TrainedShifts)
	json.Unmarshal(constraintsJSON, &m.Constraints)

	return m, nil
}

// scanStaffRow 扫描Rows中的人员数据
func (r *StaffRepository) scanStaffRow(rows *sql.Rows) (*model.StaffMember, error) {
	m := &model.StaffMember{}
	var trainedJSON, constraintsJSON []byte

	err := rows.Scan(
		&m.ID, &m.Initials, &m.StartTime, &m.EndTime, &m.Role, &m.IsCasual,
		&trainedJSON, &constraintsJSON, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "扫描人员数据失败")
	}

	json.Unmarshal(trainedJSON, &m.TrainedShifts)
	json.Unmarshal(constraintsJSON, &m.Constraints)

	return m, nil
}
