// Package storage SQLite 存储测试
package storage

import (
	"path/filepath"
	"testing"

	"grid-market-maker/internal/core/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "maker.db"))
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndQueryByOrder(t *testing.T) {
	s := newTestStore(t)

	recs := []*model.FillRecord{
		{OrderID: "o-1", Instrument: "BTCUSDT", Side: "buy", PxMicros: 50_000_000_000, Status: string(model.FillPartial)},
		{OrderID: "o-1", Instrument: "BTCUSDT", Side: "buy", PxMicros: 50_000_000_000, Status: string(model.FillFilled)},
		{OrderID: "o-2", Instrument: "BTCUSDT", Side: "sell", PxMicros: 51_000_000_000, Status: string(model.FillCanceled)},
	}
	for _, r := range recs {
		if err := s.SaveFill(r); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	got, err := s.FillsByOrder("o-1")
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("o-1 记录数=%d, want 2", len(got))
	}
	// 按写入顺序返回
	if got[0].Status != string(model.FillPartial) || got[1].Status != string(model.FillFilled) {
		t.Fatalf("记录顺序错误: %+v", got)
	}

	if got, err := s.FillsByOrder("missing"); err != nil || len(got) != 0 {
		t.Fatalf("不存在的订单应返回空集: got=%v err=%v", got, err)
	}
}

func TestStore_RecentFills(t *testing.T) {
	s := newTestStore(t)

	for i := int64(1); i <= 5; i++ {
		if err := s.SaveFill(&model.FillRecord{OrderID: "o", PxMicros: i, Status: string(model.FillFilled)}); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	got, err := s.RecentFills(3)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("返回条数=%d, want 3", len(got))
	}
	// 最新在前
	if got[0].PxMicros != 5 || got[2].PxMicros != 3 {
		t.Fatalf("最近记录顺序错误: %+v", got)
	}

	// 非法 limit 使用默认值
	if got, err := s.RecentFills(0); err != nil || len(got) != 5 {
		t.Fatalf("limit=0 应返回全部 5 条: got=%d err=%v", len(got), err)
	}
}

func TestStore_SaveNil(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveFill(nil); err == nil {
		t.Fatalf("nil 记录应报错")
	}
}
