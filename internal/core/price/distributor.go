// Package price 实现当前市场价格的单一事实源与多订阅者分发。
// 当前价通过原子指针交换整体替换，读取方永远不会观察到部分更新；
// 订阅者各持一条有界通知队列，队列满时采用 latest-wins 背压策略。
package price

import (
	"sync"
	"sync/atomic"

	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/stats/queue"
)

// DefaultQueueCapacity 订阅队列默认容量
const DefaultQueueCapacity = 16

// Subscription 价格通知订阅句柄
// 持有方独立消费 C() 返回的通道；退订必须显式调用 Distributor.Unsubscribe。
type Subscription struct {
	// id 订阅者标识
	id uint64
	// ch 有界通知队列
	ch chan model.PriceSnapshot
}

// C 获取通知通道
// 退订后通道会被关闭，消费方 range 循环自然退出。
func (s *Subscription) C() <-chan model.PriceSnapshot {
	return s.ch
}

// Distributor 价格分发器
// 唯一持有当前价；UpdatePrice 为原子替换，ReadLatest 为无锁读取。
// 慢订阅者不会阻塞发布方，也不会导致内存无界增长。
type Distributor struct {
	// latest 当前价格快照（原子指针，整体替换）
	latest atomic.Pointer[model.PriceSnapshot]

	// mu 保护订阅表（仅订阅/退订/遍历，不保护价格本身）
	mu sync.RWMutex
	// subs 订阅者表
	subs map[uint64]*Subscription
	// nextID 下一个订阅者标识
	nextID uint64

	// capacity 每个订阅队列的容量
	capacity int
	// tracker 队列投递统计（可为 nil）
	tracker *queue.Tracker
}

// NewDistributor 创建价格分发器
// 参数 capacity: 每个订阅队列的容量（<=0 时使用默认值）
// 参数 tracker: 队列统计器，可为 nil
func NewDistributor(capacity int, tracker *queue.Tracker) *Distributor {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	d := &Distributor{
		subs:     make(map[uint64]*Subscription),
		capacity: capacity,
		tracker:  tracker,
	}
	d.latest.Store(&model.PriceSnapshot{})
	return d
}

// UpdatePrice 发布新的价格快照
// 先原子替换当前价，再向每个订阅队列做非阻塞投递；
// 队列满时丢弃最旧的待处理通知并投递新值（latest-wins）。
// 单一发布 goroutine 下，每个订阅者保留下来的通知保持发布顺序。
// 参数 snap: 新的价格快照
func (d *Distributor) UpdatePrice(snap model.PriceSnapshot) {
	s := snap
	d.latest.Store(&s)

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, sub := range d.subs {
		d.offer(sub, snap)
	}
}

// offer 向单个订阅队列投递，绝不阻塞
func (d *Distributor) offer(sub *Subscription, snap model.PriceSnapshot) {
	select {
	case sub.ch <- snap:
		d.tracker.RecordDelivered(sub.id)
		return
	default:
	}

	// 队列满：丢一条最旧的，再尝试投递新值。
	// 与消费方并发时两步都可能落空，此时新值本身被丢弃，
	// 消费方仍可通过 ReadLatest 获得最新价。
	select {
	case <-sub.ch:
		d.tracker.RecordDropped(sub.id)
	default:
	}
	select {
	case sub.ch <- snap:
		d.tracker.RecordDelivered(sub.id)
	default:
		d.tracker.RecordDropped(sub.id)
	}
}

// ReadLatest 读取最近发布的价格快照
// 无锁、不阻塞、不分配；永远返回某次完整发布的值，不会出现撕裂读。
func (d *Distributor) ReadLatest() model.PriceSnapshot {
	return *d.latest.Load()
}

// Subscribe 注册一个新的订阅者
// 返回: 订阅句柄，持有方独立消费
func (d *Distributor) Subscribe() *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &Subscription{
		id: d.nextID,
		ch: make(chan model.PriceSnapshot, d.capacity),
	}
	d.subs[sub.id] = sub
	return sub
}

// Unsubscribe 显式退订
// 关闭该订阅者的通道，不影响其他订阅者。
// 参数 sub: Subscribe 返回的句柄
func (d *Distributor) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.subs[sub.id]; !ok {
		return
	}
	delete(d.subs, sub.id)
	d.tracker.Remove(sub.id)
	// 持有写锁期间不会有并发投递，关闭是安全的
	close(sub.ch)
}

// SubscriberCount 获取当前订阅者数量
func (d *Distributor) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
