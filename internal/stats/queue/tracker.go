// Package queue 统计订阅队列的投递与丢弃情况。
// 用于观察 latest-wins 背压策略的实际触发频率。
package queue

import (
	"sync"
)

// SubscriberStats 单个订阅者的队列统计
type SubscriberStats struct {
	// SubscriberID 订阅者标识
	SubscriberID uint64 `json:"subscriber_id"`
	// Delivered 成功投递次数
	Delivered int64 `json:"delivered"`
	// Dropped 因队列满被替换丢弃的通知次数
	Dropped int64 `json:"dropped"`
}

// Tracker 订阅队列统计器
// 并发安全；分发热路径只做一次计数累加。
type Tracker struct {
	// mu 保护 stats
	mu sync.Mutex
	// stats 按订阅者累计
	stats map[uint64]*SubscriberStats
}

// NewTracker 创建队列统计器
func NewTracker() *Tracker {
	return &Tracker{
		stats: make(map[uint64]*SubscriberStats),
	}
}

// RecordDelivered 记录一次成功投递
// 参数 subscriberID: 订阅者标识
func (t *Tracker) RecordDelivered(subscriberID uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.get(subscriberID).Delivered++
	t.mu.Unlock()
}

// RecordDropped 记录一次 latest-wins 丢弃
// 丢弃的是较旧的待处理通知，属于设计内行为而非故障。
// 参数 subscriberID: 订阅者标识
func (t *Tracker) RecordDropped(subscriberID uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.get(subscriberID).Dropped++
	t.mu.Unlock()
}

// Remove 移除订阅者的统计项（退订时调用）
// 参数 subscriberID: 订阅者标识
func (t *Tracker) Remove(subscriberID uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.stats, subscriberID)
	t.mu.Unlock()
}

// Snapshot 导出当前统计快照
// 返回: 所有订阅者统计的值拷贝
func (t *Tracker) Snapshot() []SubscriberStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SubscriberStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	return out
}

func (t *Tracker) get(subscriberID uint64) *SubscriberStats {
	s, ok := t.stats[subscriberID]
	if !ok {
		s = &SubscriberStats{SubscriberID: subscriberID}
		t.stats[subscriberID] = s
	}
	return s
}
