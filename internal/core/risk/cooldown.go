// Package risk 实现全局风控冷却窗口。
// 冷却标志与截止时间必须在同一临界区内一起更新，
// 禁止先读后写分成两次加锁（那正是本组件要消除的竞态）。
package risk

import (
	"sync"
	"time"

	"grid-market-maker/internal/util/timeutil"
)

// Guard 冷却窗口守卫
// 所有槽位共享一个冷却窗口；超时语义是数据驱动的（存截止时间），
// 不在组件内部起定时任务。
type Guard struct {
	// mu 保护 inCooldown 与 untilNs（两字段不可分开访问）
	mu sync.RWMutex
	// inCooldown 是否处于冷却中
	inCooldown bool
	// untilNs 冷却截止时间（纳秒）
	untilNs int64
}

// NewGuard 创建冷却窗口守卫
func NewGuard() *Guard {
	return &Guard{}
}

// TryEnter 尝试进入冷却窗口（单一临界区的 check-and-set）
// 已处于冷却中时不做任何修改返回 false；
// 否则置位并写入截止时间 now+d，返回 true。
// 两个并发调用竞争时恰有一个成功，截止时间必然等于
// 胜者的调用时刻加其请求时长，不会被交错覆盖。
// 参数 d: 冷却时长
func (g *Guard) TryEnter(d time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inCooldown {
		return false
	}

	g.inCooldown = true
	g.untilNs = timeutil.NowNano() + int64(d)
	return true
}

// IsActive 读取冷却标志
// 只反映当前存储的状态，不做过期判断；
// 自然过期由外部定时调用 Clear 完成。
func (g *Guard) IsActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inCooldown
}

// Remaining 读取剩余冷却时长
// 未处于冷却或已过截止时间时返回 0。
func (g *Guard) Remaining() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.inCooldown {
		return 0
	}
	rem := g.untilNs - timeutil.NowNano()
	if rem < 0 {
		return 0
	}
	return time.Duration(rem)
}

// Expired 判断冷却是否已自然到期（只读观察）
func (g *Guard) Expired() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.inCooldown && timeutil.NowNano() >= g.untilNs
}

// ClearIfExpired 冷却已自然到期时清理，判定与清理在同一临界区内完成
// 供清扫循环使用；先 Expired 后 Clear 的两段式写法会在两次加锁之间
// 被并发的 Clear+TryEnter 插队，把刚布防的新窗口误清掉。
// 返回: 是否发生了清理
func (g *Guard) ClearIfExpired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.inCooldown || timeutil.NowNano() < g.untilNs {
		return false
	}

	g.inCooldown = false
	g.untilNs = 0
	return true
}

// Clear 显式重置冷却窗口
// 标志与截止时间在同一临界区内一起清零。
func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inCooldown = false
	g.untilNs = 0
}
