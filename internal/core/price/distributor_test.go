// Package price 价格分发器测试
package price

import (
	"sync"
	"testing"
	"time"

	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/stats/queue"
)

func snap(px int64) model.PriceSnapshot {
	return model.PriceSnapshot{Instrument: "BTCUSDT", PxMicros: px, TsUnixNs: px}
}

func TestDistributor_ReadLatest(t *testing.T) {
	d := NewDistributor(4, nil)

	if got := d.ReadLatest(); got.PxMicros != 0 {
		t.Fatalf("初始快照应为零值, got=%+v", got)
	}

	d.UpdatePrice(snap(100_000_000))
	if got := d.ReadLatest(); got.PxMicros != 100_000_000 {
		t.Fatalf("ReadLatest=%d, want 100000000", got.PxMicros)
	}

	d.UpdatePrice(snap(101_000_000))
	if got := d.ReadLatest(); got.PxMicros != 101_000_000 {
		t.Fatalf("ReadLatest=%d, want 101000000", got.PxMicros)
	}
}

func TestDistributor_SubscribeReceivesInOrder(t *testing.T) {
	d := NewDistributor(8, nil)
	sub := d.Subscribe()
	defer d.Unsubscribe(sub)

	for i := int64(1); i <= 5; i++ {
		d.UpdatePrice(snap(i))
	}

	// 队列未满，保留的通知保持发布顺序
	for i := int64(1); i <= 5; i++ {
		got := <-sub.C()
		if got.PxMicros != i {
			t.Fatalf("第 %d 条通知 px=%d, want %d", i, got.PxMicros, i)
		}
	}
}

func TestDistributor_LatestWinsBackpressure(t *testing.T) {
	tracker := queue.NewTracker()
	d := NewDistributor(1, tracker)
	sub := d.Subscribe()
	defer d.Unsubscribe(sub)

	// 订阅者不消费，发布方持续发布也绝不阻塞
	const n = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := int64(1); i <= n; i++ {
			d.UpdatePrice(snap(i))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("发布方被慢订阅者阻塞")
	}

	// 慢订阅者最终只看到最新一条
	got := <-sub.C()
	if got.PxMicros != n {
		t.Fatalf("慢订阅者收到 px=%d, want %d（latest-wins）", got.PxMicros, n)
	}
	select {
	case extra := <-sub.C():
		t.Fatalf("队列应只保留最新一条, 多出 px=%d", extra.PxMicros)
	default:
	}

	stats := tracker.Snapshot()
	if len(stats) != 1 || stats[0].Dropped == 0 {
		t.Fatalf("背压统计应记录丢弃, got=%+v", stats)
	}
}

func TestDistributor_UnsubscribeIsolated(t *testing.T) {
	d := NewDistributor(4, nil)
	a := d.Subscribe()
	b := d.Subscribe()

	d.Unsubscribe(a)

	if _, ok := <-a.C(); ok {
		t.Fatalf("退订后通道应关闭")
	}

	// 其他订阅者不受影响
	d.UpdatePrice(snap(42))
	got := <-b.C()
	if got.PxMicros != 42 {
		t.Fatalf("订阅者 b 收到 px=%d, want 42", got.PxMicros)
	}
	if d.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount=%d, want 1", d.SubscriberCount())
	}

	// 重复退订应为 no-op
	d.Unsubscribe(a)
	d.Unsubscribe(b)
}

func TestDistributor_ConcurrentReadersNeverBlock(t *testing.T) {
	d := NewDistributor(4, nil)
	d.UpdatePrice(snap(1))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if got := d.ReadLatest(); got.PxMicros == 0 {
						t.Errorf("读到未发布的零值快照")
						return
					}
				}
			}
		}()
	}

	for i := int64(2); i <= 10000; i++ {
		d.UpdatePrice(snap(i))
	}
	close(stop)
	wg.Wait()
}
