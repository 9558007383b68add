// Package storage 实现成交记录的 SQLite 持久化。
// 使用纯 Go 的 sqlite 驱动，无 CGO 依赖。
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grid-market-maker/internal/core/model"
)

// Store 成交记录存储
type Store struct {
	// db gorm 数据库句柄
	db *gorm.DB
}

// NewStore 创建 SQLite 存储
// 参数 path: 数据库文件路径（目录不存在时自动创建）
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if err := db.AutoMigrate(&model.FillRecord{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveFill 持久化一条成交记录
// 参数 rec: 成交记录
func (s *Store) SaveFill(rec *model.FillRecord) error {
	if rec == nil {
		return fmt.Errorf("记录为空")
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("写入成交记录失败: %w", err)
	}
	return nil
}

// FillsByOrder 查询指定订单的成交记录
// 参数 orderID: 交易所订单号
func (s *Store) FillsByOrder(orderID string) ([]model.FillRecord, error) {
	var recs []model.FillRecord
	err := s.db.Where("order_id = ?", orderID).Order("id asc").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("查询成交记录失败: %w", err)
	}
	return recs, nil
}

// RecentFills 查询最近的成交记录
// 参数 limit: 返回条数上限
func (s *Store) RecentFills(limit int) ([]model.FillRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []model.FillRecord
	err := s.db.Order("id desc").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("查询成交记录失败: %w", err)
	}
	return recs, nil
}

// Close 关闭底层数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层连接失败: %w", err)
	}
	return sqlDB.Close()
}
