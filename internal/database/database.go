// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/banbiao/banbiao/internal/config"
	"github.com/banbiao/banbiao/internal/metrics"
	"github.com/banbiao/banbiao/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 创建新的数据库连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg}, nil
}

// rosterRecordsSchema 班表记录表结构
// 班表与违规列表以JSON列存储，避免为稀疏的单元格数据建宽表
const rosterRecordsSchema = `
CREATE TABLE IF NOT EXISTS roster_records (
	id            UUID PRIMARY KEY,
	request_id    VARCHAR(64) NOT NULL,
	start_date    VARCHAR(10) NOT NULL,
	end_date      VARCHAR(10) NOT NULL,
	method        VARCHAR(32) NOT NULL,
	tier          VARCHAR(16) NOT NULL,
	quality_score DOUBLE PRECISION NOT NULL,
	valid         BOOLEAN NOT NULL,
	schedule      JSONB NOT NULL,
	violations    JSONB,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_roster_records_request_id ON roster_records (request_id);
CREATE INDEX IF NOT EXISTS idx_roster_records_created_at ON roster_records (created_at DESC);
`

// Bootstrap 初始化班表记录表
func (db *DB) Bootstrap(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, rosterRecordsSchema); err != nil {
		return fmt.Errorf("初始化roster_records表失败: %w", err)
	}
	logger.Info().Msg("roster_records表就绪")
	return nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查，顺带刷新连接池指标
func (db *DB) Health(ctx context.Context) error {
	db.reportPoolStats()
	return db.PingContext(ctx)
}

// reportPoolStats 上报连接池状态
func (db *DB) reportPoolStats() {
	stats := db.DB.Stats()
	metrics.SetDBConnections(stats.OpenConnections, stats.Idle, stats.InUse)
}

// Transaction 执行事务
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	return nil
}

// Stats 返回数据库统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// Exec 执行SQL语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if duration > 100*time.Millisecond {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}

	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if duration > 100*time.Millisecond {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}

	return rows, err
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
