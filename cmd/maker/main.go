// Package main 是网格做市核心的入口点。
// 负责装配价格分发器、库存槽位表、成交协调器与冷却守卫，
// 并将网关行情/回报流接入同一取消层级，实现协同停机。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grid-market-maker/internal/config"
	"grid-market-maker/internal/core/fill"
	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/core/price"
	"grid-market-maker/internal/core/risk"
	"grid-market-maker/internal/core/slot"
	"grid-market-maker/internal/exchange/binance"
	"grid-market-maker/internal/logging"
	"grid-market-maker/internal/output/journal"
	"grid-market-maker/internal/stats/queue"
	"grid-market-maker/internal/storage"
	"grid-market-maker/internal/util/timeutil"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.LogDir)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	// 核心组件
	tracker := queue.NewTracker()
	dist := price.NewDistributor(cfg.Maker.QueueCapacity, tracker)
	table := slot.NewTable()
	guard := risk.NewGuard()

	// 落盘链路：JSONL 日志 + SQLite 持久化（均可按配置关闭）
	var fillsWriter *journal.Writer
	if cfg.Output.FillsEnabled {
		fillsWriter, err = journal.NewWriter(fmt.Sprintf("%s/fills.jsonl", cfg.Output.Dir), cfg.Output.BufferSize)
		if err != nil {
			logger.Error("创建 fills writer 失败", zap.Error(err))
			os.Exit(1)
		}
	}
	var store *storage.Store
	if cfg.Storage.Enabled {
		store, err = storage.NewStore(cfg.Storage.Path)
		if err != nil {
			logger.Error("打开 SQLite 存储失败", zap.Error(err))
			os.Exit(1)
		}
	}

	// 持仓查询客户端（锁外慢路径使用）
	var positions fill.PositionFetcher
	if cfg.REST.PositionURL != "" {
		positions = binance.NewPositionClient(cfg.REST.PositionURL, cfg.REST.TimeoutMs)
	}

	coordinator := fill.NewCoordinator(
		table, guard, positions,
		newFillCallback(fillsWriter, store),
		cfg.Maker.Cooldown(), logger,
	)

	// 网关连接
	client := binance.NewClient(&cfg.WS, cfg.Instrument, logger)

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()
	if err := client.Connect(startCtx); err != nil {
		logger.Error("网关连接失败", zap.Error(err))
		os.Exit(1)
	}
	if err := client.Subscribe(); err != nil {
		logger.Error("网关订阅失败", zap.Error(err))
		os.Exit(1)
	}

	// 所有长期任务挂在同一取消层级下
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client.Run(gctx)
		return nil
	})

	// 行情泵：网关价格流 -> 分发器（单写者，保证通知顺序）
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case snap, ok := <-client.PriceCh():
				if !ok {
					return nil
				}
				if snap.IsValid() {
					dist.UpdatePrice(snap)
				}
			}
		}
	})

	// 成交协调器
	g.Go(func() error {
		return coordinator.Run(gctx, client.FillCh())
	})

	// 清扫循环：回收 pending 超时槽位、清理自然到期的冷却窗口
	g.Go(func() error {
		return runSweeper(gctx, cfg, table, guard, logger)
	})

	// 报价资格观察者：消费价格通知，演示策略侧订阅姿势
	sub := dist.Subscribe()
	g.Go(func() error {
		defer dist.Unsubscribe(sub)
		return runEligibilityObserver(gctx, sub, guard, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("核心任务退出", zap.Error(err))
	}

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		var closeErr error
		closeErr = multierr.Append(closeErr, client.Close())
		if fillsWriter != nil {
			closeErr = multierr.Append(closeErr, fillsWriter.Close())
		}
		if store != nil {
			closeErr = multierr.Append(closeErr, store.Close())
		}
		if closeErr != nil {
			logger.Warn("关闭组件时出错", zap.Error(closeErr))
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		for _, st := range tracker.Snapshot() {
			logger.Info("订阅队列统计",
				zap.Uint64("subscriber", st.SubscriberID),
				zap.Int64("delivered", st.Delivered),
				zap.Int64("dropped", st.Dropped))
		}
		logger.Info("关闭完成")
	}
}

// newFillCallback 组装下游成交回调：JSONL 落盘 + SQLite 持久化
// 回调只接收锁外拷贝，失败会上报给协调器的调用方。
func newFillCallback(w *journal.Writer, store *storage.Store) fill.Callback {
	return func(_ context.Context, rec *model.FillRecord) error {
		if w != nil {
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("写入成交日志失败: %w", err)
			}
		}
		if store != nil {
			if err := store.SaveFill(rec); err != nil {
				return fmt.Errorf("持久化成交记录失败: %w", err)
			}
		}
		return nil
	}
}

// runSweeper 定时清扫循环
// pending 超时回收与冷却到期清理均为数据驱动，不依赖任务级定时器。
func runSweeper(ctx context.Context, cfg *config.Config, table *slot.Table, guard *risk.Guard, logger *zap.Logger) error {
	log := logger.Named("sweeper")
	ticker := time.NewTicker(cfg.Maker.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := table.ExpireStalePending(timeutil.NowNano(), cfg.Maker.PendingTimeout()); n > 0 {
				log.Warn("回收 pending 超时槽位", zap.Int("count", n))
			}
			if guard.ClearIfExpired() {
				log.Info("冷却窗口自然到期，已清理")
			}
		}
	}
}

// runEligibilityObserver 报价资格观察者
// 每收到一次价格通知，结合冷却状态输出当前报价资格；
// 真实策略层以同样的方式订阅并驱动挂单决策。
func runEligibilityObserver(ctx context.Context, sub *price.Subscription, guard *risk.Guard, logger *zap.Logger) error {
	log := logger.Named("observer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			if guard.IsActive() {
				log.Debug("冷却中，暂停报价",
					zap.String("instrument", snap.Instrument),
					zap.Duration("remaining", guard.Remaining()))
				continue
			}
			log.Debug("价格更新",
				zap.String("instrument", snap.Instrument),
				zap.String("px", model.PxToString(snap.PxMicros)))
		}
	}
}
