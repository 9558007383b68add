// Package model 定义做市核心中使用的数据结构。
package model

import (
	"time"
)

// SlotStatus 槽位状态
type SlotStatus string

const (
	// StatusFree 空闲
	// 该价位当前没有挂单也没有持仓
	StatusFree SlotStatus = "free"
	// StatusPending 挂单中
	// 已向交易所提交订单，等待成交或撤销
	StatusPending SlotStatus = "pending"
	// StatusLocked 已持仓
	// 订单已成交，该价位的库存被占用
	StatusLocked SlotStatus = "locked"
)

// ValidTransition 判断状态迁移是否合法
// 合法路径: free→pending→locked→free，以及 pending→free（撤单/拒单）。
// 参数 from: 当前状态
// 参数 to: 目标状态
func ValidTransition(from, to SlotStatus) bool {
	switch from {
	case StatusFree:
		return to == StatusPending
	case StatusPending:
		return to == StatusLocked || to == StatusFree
	case StatusLocked:
		return to == StatusFree
	default:
		return false
	}
}

// SlotSnapshot 槽位快照
// ReadSnapshot 在读锁内拷贝所有字段后返回，
// 返回后与活动槽位完全独立，后续槽位变更不会影响快照内容。
type SlotSnapshot struct {
	// PxMicros 价位（micro 定点）
	PxMicros int64
	// Status 槽位状态
	Status SlotStatus
	// Order 跟踪订单快照（无挂单时为 nil）
	Order *TrackedOrder
	// LastUpdatedNs 最近一次变更时间（纳秒）
	LastUpdatedNs int64
}

// LastUpdated 获取最近变更时间的 time.Time 表示
func (s SlotSnapshot) LastUpdated() time.Time {
	return time.Unix(0, s.LastUpdatedNs)
}
