// Package slot 实现按价位独立加锁的库存槽位表。
// 表级插入由并发安全结构保证，字段级修改只由槽位自身的锁管辖；
// 数百个价位可以并行更新，不存在全表大锁。
package slot

import (
	"sync"
	"time"

	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/util/timeutil"
)

// Slot 单个价位的库存槽位
// 槽位惰性创建、进程生命周期内不删除，跨做市周期复用。
// 状态与订单字段只能通过本包方法修改；锁不对外暴露，
// 任何 read-modify-write 都在一次锁持有内完成。
type Slot struct {
	// pxMicros 价位（micro 定点，创建后不变）
	pxMicros int64

	// mu 槽位独立读写锁
	mu sync.RWMutex
	// status 槽位状态（mu 保护）
	status model.SlotStatus
	// order 跟踪订单（mu 保护，无挂单时为 nil）
	order *model.TrackedOrder
	// lastUpdatedNs 最近一次状态变更时间（mu 保护）
	lastUpdatedNs int64
}

// PxMicros 获取槽位价位
func (s *Slot) PxMicros() int64 {
	return s.pxMicros
}

// TryTransition 尝试状态迁移（单一临界区的 check-and-set）
// 在一次锁持有内校验当前状态等于 from 且迁移路径合法，
// 成立则置为 to 并返回 true；否则不做任何修改返回 false。
// false 是正常业务结果（并发竞争落败、状态已变），不是错误。
// 参数 from: 期望的当前状态
// 参数 to: 目标状态
func (s *Slot) TryTransition(from, to model.SlotStatus) bool {
	return s.TryTransitionOrder(from, to, nil)
}

// TryTransitionOrder 尝试状态迁移并原子更新跟踪订单
// 状态与订单在同一临界区内一起变更：
// - ord 非 nil 时绑定为新的跟踪订单
// - 迁移到 free 时清空跟踪订单
// 参数 from: 期望的当前状态
// 参数 to: 目标状态
// 参数 ord: 随迁移绑定的订单，可为 nil
func (s *Slot) TryTransitionOrder(from, to model.SlotStatus, ord *model.TrackedOrder) bool {
	if !model.ValidTransition(from, to) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != from {
		return false
	}

	s.status = to
	if ord != nil {
		s.order = ord
	}
	if to == model.StatusFree {
		s.order = nil
	}
	s.lastUpdatedNs = timeutil.NowNano()
	return true
}

// Snapshot 读取槽位快照
// 读锁内拷贝所有字段（订单深拷贝）后返回；
// 多个读取方可并行，写入方等待所有在读者释放。
func (s *Slot) Snapshot() model.SlotSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.SlotSnapshot{
		PxMicros:      s.pxMicros,
		Status:        s.status,
		Order:         s.order.Clone(),
		LastUpdatedNs: s.lastUpdatedNs,
	}
}

// TryResolveOrder 校验跟踪订单并迁移状态，同时捕获订单快照
// 判定（当前状态等于 from 且跟踪订单号等于 orderID）、状态迁移、
// 订单深拷贝三者在同一次锁持有内完成；返回的拷贝在锁释放后
// 可安全用于持仓查询、下游回调等慢路径，后续槽位变更不影响它。
// 参数 orderID: 期望匹配的交易所订单号
// 参数 from: 期望的当前状态
// 参数 to: 目标状态
// 返回: 迁移前跟踪订单的深拷贝；未匹配或迁移非法时返回 (nil, false) 且不修改
func (s *Slot) TryResolveOrder(orderID string, from, to model.SlotStatus) (*model.TrackedOrder, bool) {
	if !model.ValidTransition(from, to) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != from {
		return nil, false
	}
	if s.order == nil || s.order.OrderID != orderID {
		return nil, false
	}

	captured := s.order.Clone()
	s.status = to
	if to == model.StatusFree {
		s.order = nil
	}
	s.lastUpdatedNs = timeutil.NowNano()
	return captured, true
}

// MatchOrder 在读锁内校验跟踪订单并捕获快照（不迁移状态）
// 用于部分成交等只需回调、无状态变化的场景。
// 参数 orderID: 期望匹配的交易所订单号
// 返回: 跟踪订单的深拷贝；未匹配时返回 (nil, false)
func (s *Slot) MatchOrder(orderID string) (*model.TrackedOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.order == nil || s.order.OrderID != orderID {
		return nil, false
	}
	return s.order.Clone(), true
}

// expireIfStalePending 若槽位停留在 pending 超过 maxAge 则回收为 free
// 返回是否发生了回收。
func (s *Slot) expireIfStalePending(nowNs int64, maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.StatusPending {
		return false
	}
	if nowNs-s.lastUpdatedNs < int64(maxAge) {
		return false
	}

	s.status = model.StatusFree
	s.order = nil
	s.lastUpdatedNs = nowNs
	return true
}

// Table 槽位表
// key 为价位（micro 定点），value 为 *Slot。
// 插入使用 sync.Map 的 LoadOrStore，保证并发首次访问只产生一个槽位。
type Table struct {
	// slots 价位 -> 槽位
	slots sync.Map
	// count 槽位数量（仅统计用）
	countMu sync.Mutex
	count   int
}

// NewTable 创建槽位表
func NewTable() *Table {
	return &Table{}
}

// GetOrCreate 获取指定价位的槽位，不存在时创建
// 并发调用同一价位保证返回同一个槽位实例。
// 参数 pxMicros: 价位（micro 定点）
func (t *Table) GetOrCreate(pxMicros int64) *Slot {
	if v, ok := t.slots.Load(pxMicros); ok {
		return v.(*Slot)
	}

	fresh := &Slot{
		pxMicros:      pxMicros,
		status:        model.StatusFree,
		lastUpdatedNs: timeutil.NowNano(),
	}
	actual, loaded := t.slots.LoadOrStore(pxMicros, fresh)
	if !loaded {
		t.countMu.Lock()
		t.count++
		t.countMu.Unlock()
	}
	return actual.(*Slot)
}

// TryTransition 按价位尝试状态迁移
// GetOrCreate 与槽位迁移的组合便捷方法。
// 参数 pxMicros: 价位（micro 定点）
// 参数 from: 期望的当前状态
// 参数 to: 目标状态
func (t *Table) TryTransition(pxMicros int64, from, to model.SlotStatus) bool {
	return t.GetOrCreate(pxMicros).TryTransition(from, to)
}

// ReadSnapshot 按价位读取槽位快照
// 参数 pxMicros: 价位（micro 定点）
func (t *Table) ReadSnapshot(pxMicros int64) model.SlotSnapshot {
	return t.GetOrCreate(pxMicros).Snapshot()
}

// ExpireStalePending 回收停留在 pending 超时的槽位
// 预期的成交/拒单长时间未到达时，由定时清扫将槽位归还为 free，
// 每个槽位的检查与回收都在该槽位自己的一次临界区内完成。
// 参数 nowNs: 当前时间（纳秒）
// 参数 maxAge: pending 最长停留时间
// 返回: 本次回收的槽位数量
func (t *Table) ExpireStalePending(nowNs int64, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	expired := 0
	t.slots.Range(func(_, v any) bool {
		if v.(*Slot).expireIfStalePending(nowNs, maxAge) {
			expired++
		}
		return true
	})
	return expired
}

// Len 获取当前槽位数量
func (t *Table) Len() int {
	t.countMu.Lock()
	defer t.countMu.Unlock()
	return t.count
}
