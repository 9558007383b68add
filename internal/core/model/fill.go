// Package model 定义做市核心中使用的数据结构。
package model

import (
	"time"
)

// FillStatus 成交事件状态
// 封闭枚举：交易所异构消息在传输适配层一次性转换为该类型，
// 核心内部只按枚举分发，不做字段名/反射探测。
type FillStatus string

const (
	// FillFilled 完全成交
	FillFilled FillStatus = "filled"
	// FillPartial 部分成交
	FillPartial FillStatus = "partial"
	// FillCanceled 已撤销
	FillCanceled FillStatus = "canceled"
	// FillRejected 被拒绝
	// 触发风控冷却窗口
	FillRejected FillStatus = "rejected"
)

// FillEvent 成交事件
// 由传输适配层归一化后投递给 OrderFillCoordinator。
type FillEvent struct {
	// OrderID 交易所订单号
	OrderID string
	// Instrument 合约标识
	Instrument string
	// PxMicros 成交价位（micro 定点），用于定位槽位
	PxMicros int64
	// Status 成交状态
	Status FillStatus
	// QtyMicros 成交数量（micro 定点）
	QtyMicros int64
	// Side 方向: buy 或 sell
	Side string
	// ArrivedAtUnixNs 本机收到事件的时间戳（纳秒）
	ArrivedAtUnixNs int64
}

// IsTerminal 判断事件是否终结订单生命周期
// filled/canceled/rejected 为终态，partial 不是。
func (e *FillEvent) IsTerminal() bool {
	return e.Status == FillFilled || e.Status == FillCanceled || e.Status == FillRejected
}

// FillRecord 成交落盘记录
// 由下游回调写入 JSONL 日志与 SQLite 存储。
type FillRecord struct {
	// ID 数据库自增主键
	ID uint `gorm:"primaryKey" json:"-"`
	// OrderID 交易所订单号
	OrderID string `gorm:"index" json:"order_id"`
	// ClientOrderID 客户端订单号
	ClientOrderID string `json:"client_order_id"`
	// Instrument 合约标识
	Instrument string `gorm:"index" json:"instrument"`
	// Side 方向
	Side string `json:"side"`
	// PxMicros 成交价位（micro 定点）
	PxMicros int64 `json:"px_micros"`
	// QtyMicros 成交数量（micro 定点）
	QtyMicros int64 `json:"qty_micros"`
	// Status 成交状态
	Status string `json:"status"`
	// SlotStatus 处理后的槽位状态
	SlotStatus string `json:"slot_status"`
	// PositionMicros 锁外查询到的当前持仓（micro 定点）
	PositionMicros int64 `json:"position_micros"`
	// TsUnixNs 事件时间（纳秒）
	TsUnixNs int64 `json:"ts_unix_ns"`
	// CreatedAt 记录写入时间
	CreatedAt time.Time `json:"-"`
}
