package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labroster/labroster/pkg/logger"
)

// migration 一次有序的结构变更
type migration struct {
	name  string
	stmts []string
}

// migrations 按序执行，已应用的记录在 schema_migrations 中跳过
var migrations = []migration{
	{
		name: "001_create_staff",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS staff (
				id UUID PRIMARY KEY,
				initials TEXT NOT NULL,
				start_time TEXT NOT NULL DEFAULT '',
				end_time TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT 'Any',
				is_casual BOOLEAN NOT NULL DEFAULT FALSE,
				trained_shifts JSONB NOT NULL DEFAULT '[]',
				constraints JSONB,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				deleted_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_staff_initials
				ON staff (initials) WHERE deleted_at IS NULL`,
		},
	},
	{
		name: "002_create_shifts",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS shifts (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				role_required TEXT NOT NULL DEFAULT 'Any',
				is_flexible BOOLEAN NOT NULL DEFAULT FALSE,
				start_time TEXT NOT NULL DEFAULT '',
				end_time TEXT NOT NULL DEFAULT '',
				can_remain_open BOOLEAN NOT NULL DEFAULT FALSE,
				days_of_week JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				deleted_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_name
				ON shifts (name) WHERE deleted_at IS NULL`,
		},
	},
	{
		name: "003_create_availability_records",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS availability_records (
				id UUID PRIMARY KEY,
				initials TEXT NOT NULL,
				date TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				is_holiday BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				deleted_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_availability_date
				ON availability_records (date) WHERE deleted_at IS NULL`,
			`CREATE INDEX IF NOT EXISTS idx_availability_initials
				ON availability_records (initials) WHERE deleted_at IS NULL`,
		},
	},
	{
		name: "004_create_schedules",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schedules (
				id UUID PRIMARY KEY,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				status TEXT NOT NULL,
				objective INTEGER NOT NULL DEFAULT 0,
				version INTEGER NOT NULL DEFAULT 1,
				result JSONB NOT NULL DEFAULT '{}',
				created_by UUID,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				deleted_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_schedules_range
				ON schedules (start_date, end_date) WHERE deleted_at IS NULL`,
		},
	},
}

// Migrate 启动时补齐表结构，按名称记录已应用的变更
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("创建迁移记录表失败: %w", err)
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return err
		}
		logger.Info().Str("migration", m.name).Msg("数据库迁移已应用")
	}

	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("查询迁移记录失败: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("读取迁移记录失败: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (db *DB) applyMigration(ctx context.Context, m migration) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("执行迁移 %s 失败: %w", m.name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.name); err != nil {
			return fmt.Errorf("记录迁移 %s 失败: %w", m.name, err)
		}
		return nil
	})
}
