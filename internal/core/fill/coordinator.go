// Package fill 实现成交事件协调器。
// 对每个成交事件执行 接收→锁内判定→锁内拷贝→释放→锁外调用 的流程：
// 是否动作的判定与所需数据的捕获在同一临界区内完成，
// 持仓查询与下游回调等慢 I/O 严格发生在槽位锁释放之后。
package fill

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/core/risk"
	"grid-market-maker/internal/core/slot"
)

// PositionFetcher 持仓查询接口
// 阻塞调用，只允许在槽位锁释放之后使用。
type PositionFetcher interface {
	// FetchPosition 查询指定合约的当前持仓（micro 定点）
	FetchPosition(ctx context.Context, instrument string) (int64, error)
}

// Callback 下游成交回调
// 只接收锁外的值拷贝；回调失败上报给调用方，协调器不重试，
// 也绝不在回调内部重新进入槽位锁。
type Callback func(ctx context.Context, rec *model.FillRecord) error

// Coordinator 成交事件协调器
// 消费传输适配层投递的归一化成交事件，驱动槽位状态迁移，
// 并在拒单时为冷却守卫布防。
type Coordinator struct {
	// table 槽位表
	table *slot.Table
	// guard 冷却守卫
	guard *risk.Guard
	// positions 持仓查询客户端（锁外使用）
	positions PositionFetcher
	// callback 下游回调
	callback Callback
	// cooldown 拒单触发的冷却时长
	cooldown time.Duration
	// logger 日志记录器
	logger *zap.Logger
}

// NewCoordinator 创建成交事件协调器
// 参数 table: 槽位表
// 参数 guard: 冷却守卫
// 参数 positions: 持仓查询客户端，可为 nil（不查询）
// 参数 callback: 下游回调，可为 nil（不回调）
// 参数 cooldown: 拒单触发的冷却时长
// 参数 logger: 日志记录器
func NewCoordinator(
	table *slot.Table,
	guard *risk.Guard,
	positions PositionFetcher,
	callback Callback,
	cooldown time.Duration,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		table:     table,
		guard:     guard,
		positions: positions,
		callback:  callback,
		cooldown:  cooldown,
		logger:    logger.Named("fill"),
	}
}

// Run 启动协调器主循环
// 从 events 消费成交事件直到通道关闭或 ctx 取消；
// 单个事件的处理失败只记录日志，不中断循环。
// 参数 ctx: 取消上下文
// 参数 events: 成交事件输入通道
func (c *Coordinator) Run(ctx context.Context, events <-chan *model.FillEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := c.Process(ctx, ev); err != nil {
				c.logger.Warn("处理成交事件失败",
					zap.Error(err),
					zap.String("order_id", ev.OrderID),
					zap.String("status", string(ev.Status)))
			}
		}
	}
}

// Process 处理单个成交事件
// 状态机: RECEIVED → 锁内 DECIDE+COPY → 释放 → INVOKE（慢 I/O）。
// 下游回调失败会作为错误返回给调用方。
// 参数 ctx: 取消上下文
// 参数 ev: 归一化成交事件
func (c *Coordinator) Process(ctx context.Context, ev *model.FillEvent) error {
	if ev == nil || ev.OrderID == "" || ev.PxMicros <= 0 {
		return fmt.Errorf("非法成交事件: %+v", ev)
	}

	s := c.table.GetOrCreate(ev.PxMicros)

	// 锁内判定 + 拷贝；返回后槽位锁已释放
	ord, slotStatus, matched := c.resolve(s, ev)
	if !matched {
		// 未匹配到跟踪订单：迟到/重复的事件，属正常情况
		c.logger.Debug("成交事件未匹配槽位订单",
			zap.String("order_id", ev.OrderID),
			zap.Int64("px_micros", ev.PxMicros),
			zap.String("status", string(ev.Status)))
		return nil
	}

	// 拒单视为风控事件：为全局冷却窗口布防（已在冷却中则不动）
	if ev.Status == model.FillRejected && c.guard != nil {
		if c.guard.TryEnter(c.cooldown) {
			c.logger.Warn("拒单触发冷却窗口",
				zap.String("order_id", ev.OrderID),
				zap.Duration("cooldown", c.cooldown))
		}
	}

	// 以下全部为锁外慢路径，只使用 ord 这份深拷贝
	return c.invoke(ctx, ev, ord, slotStatus)
}

// resolve 在槽位自己的一次临界区内完成判定、迁移与订单拷贝
// 返回捕获的订单深拷贝、迁移后的槽位状态、是否匹配。
func (c *Coordinator) resolve(s *slot.Slot, ev *model.FillEvent) (*model.TrackedOrder, model.SlotStatus, bool) {
	switch ev.Status {
	case model.FillFilled:
		// 入场单成交：挂单占位变为持仓
		if ord, ok := s.TryResolveOrder(ev.OrderID, model.StatusPending, model.StatusLocked); ok {
			return ord, model.StatusLocked, true
		}
		// 出场单成交：持仓释放回空闲
		if ord, ok := s.TryResolveOrder(ev.OrderID, model.StatusLocked, model.StatusFree); ok {
			return ord, model.StatusFree, true
		}
		return nil, "", false

	case model.FillPartial:
		// 部分成交不迁移状态，仅读锁内匹配并拷贝
		if ord, ok := s.MatchOrder(ev.OrderID); ok {
			return ord, model.StatusPending, true
		}
		return nil, "", false

	case model.FillCanceled, model.FillRejected:
		// 撤单/拒单：挂单占位归还空闲
		if ord, ok := s.TryResolveOrder(ev.OrderID, model.StatusPending, model.StatusFree); ok {
			return ord, model.StatusFree, true
		}
		return nil, "", false

	default:
		return nil, "", false
	}
}

// invoke 锁外慢路径：持仓查询 + 下游回调
func (c *Coordinator) invoke(ctx context.Context, ev *model.FillEvent, ord *model.TrackedOrder, slotStatus model.SlotStatus) error {
	var posMicros int64
	if c.positions != nil {
		pos, err := c.positions.FetchPosition(ctx, ev.Instrument)
		if err != nil {
			// 持仓查询失败不阻断回调，记录后按未知持仓处理
			c.logger.Warn("查询持仓失败", zap.Error(err), zap.String("instrument", ev.Instrument))
		} else {
			posMicros = pos
		}
	}

	if c.callback == nil {
		return nil
	}

	rec := &model.FillRecord{
		OrderID:        ord.OrderID,
		ClientOrderID:  ord.ClientOrderID,
		Instrument:     ev.Instrument,
		Side:           ev.Side,
		PxMicros:       ev.PxMicros,
		QtyMicros:      ev.QtyMicros,
		Status:         string(ev.Status),
		SlotStatus:     string(slotStatus),
		PositionMicros: posMicros,
		TsUnixNs:       ev.ArrivedAtUnixNs,
	}

	if err := c.callback(ctx, rec); err != nil {
		return fmt.Errorf("下游回调失败: %w", err)
	}
	return nil
}
