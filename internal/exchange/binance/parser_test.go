// Package binance 网关消息解析测试
package binance

import (
	"testing"

	"grid-market-maker/internal/core/model"
)

func TestParser_BookTickerMidPrice(t *testing.T) {
	p := NewParser("btcusdt")

	data := []byte(`{"e":"bookTicker","E":1700000000000,"s":"BTCUSDT","b":"50000.10","a":"50000.30"}`)
	snap, ev, err := p.Parse(data)
	if err != nil {
		t.Fatalf("Parse 失败: %v", err)
	}
	if ev != nil {
		t.Fatalf("bookTicker 不应产生成交事件")
	}
	if snap == nil {
		t.Fatalf("bookTicker 应产生价格快照")
	}

	// 中间价 = (50000.10 + 50000.30) / 2 = 50000.20，micro 定点必须精确
	if snap.PxMicros != 50_000_200_000 {
		t.Fatalf("中间价=%d, want 50000200000", snap.PxMicros)
	}
	if snap.Instrument != "BTCUSDT" {
		t.Fatalf("Instrument=%s, want BTCUSDT", snap.Instrument)
	}
	if snap.TsUnixNs <= 0 {
		t.Fatalf("到达时间未打戳")
	}
}

func TestParser_BookTickerInvalidQuote(t *testing.T) {
	p := NewParser("BTCUSDT")

	cases := []struct {
		name string
		data string
	}{
		{"买卖价倒挂", `{"e":"bookTicker","E":1700000000000,"s":"BTCUSDT","b":"50001","a":"50000"}`},
		{"零买价", `{"e":"bookTicker","E":1700000000000,"s":"BTCUSDT","b":"0","a":"50000"}`},
		{"非数字价格", `{"e":"bookTicker","E":1700000000000,"s":"BTCUSDT","b":"abc","a":"50000"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snap, _, err := p.Parse([]byte(c.data))
			if err == nil {
				t.Fatalf("无效报价应报错")
			}
			if snap != nil {
				t.Fatalf("无效报价不应产生快照")
			}
		})
	}
}

func TestParser_BookTickerOtherSymbolFiltered(t *testing.T) {
	p := NewParser("BTCUSDT")

	data := []byte(`{"e":"bookTicker","E":1700000000000,"s":"ETHUSDT","b":"3000.1","a":"3000.2"}`)
	snap, ev, err := p.Parse(data)
	if err != nil || snap != nil || ev != nil {
		t.Fatalf("其他交易对的消息应被静默过滤: snap=%v ev=%v err=%v", snap, ev, err)
	}
}

func TestParser_ExecutionReportFilled(t *testing.T) {
	p := NewParser("BTCUSDT")

	data := []byte(`{"e":"executionReport","E":1700000000123,"s":"BTCUSDT","S":"BUY","p":"50000.25","l":"0.5","X":"FILLED","i":12345,"c":"client-1"}`)
	snap, ev, err := p.Parse(data)
	if err != nil {
		t.Fatalf("Parse 失败: %v", err)
	}
	if snap != nil {
		t.Fatalf("executionReport 不应产生价格快照")
	}
	if ev == nil {
		t.Fatalf("成交回报应产生成交事件")
	}

	if ev.OrderID != "12345" {
		t.Fatalf("OrderID=%s, want 12345", ev.OrderID)
	}
	if ev.Status != model.FillFilled {
		t.Fatalf("Status=%s, want filled", ev.Status)
	}
	if ev.PxMicros != 50_000_250_000 {
		t.Fatalf("PxMicros=%d, want 50000250000", ev.PxMicros)
	}
	if ev.QtyMicros != 500_000 {
		t.Fatalf("QtyMicros=%d, want 500000", ev.QtyMicros)
	}
	if ev.Side != "buy" {
		t.Fatalf("Side=%s, want buy", ev.Side)
	}
}

func TestParser_ExecutionReportStatusMapping(t *testing.T) {
	p := NewParser("BTCUSDT")

	cases := []struct {
		exchange string
		want     model.FillStatus
	}{
		{"FILLED", model.FillFilled},
		{"PARTIALLY_FILLED", model.FillPartial},
		{"CANCELED", model.FillCanceled},
		{"EXPIRED", model.FillCanceled},
		{"REJECTED", model.FillRejected},
	}
	for _, c := range cases {
		t.Run(c.exchange, func(t *testing.T) {
			data := []byte(`{"e":"executionReport","E":1700000000123,"s":"BTCUSDT","S":"SELL","p":"100","l":"1","X":"` + c.exchange + `","i":1}`)
			_, ev, err := p.Parse(data)
			if err != nil {
				t.Fatalf("Parse 失败: %v", err)
			}
			if ev == nil || ev.Status != c.want {
				t.Fatalf("状态映射错误: got=%v, want %s", ev, c.want)
			}
		})
	}
}

func TestParser_ExecutionReportNonFillSkipped(t *testing.T) {
	p := NewParser("BTCUSDT")

	// NEW 等非成交态回报不进入核心
	data := []byte(`{"e":"executionReport","E":1700000000123,"s":"BTCUSDT","S":"BUY","p":"100","X":"NEW","i":7}`)
	snap, ev, err := p.Parse(data)
	if err != nil || snap != nil || ev != nil {
		t.Fatalf("NEW 回报应被跳过: snap=%v ev=%v err=%v", snap, ev, err)
	}
}

// 真实网关消息总是带数值的 "E"（事件时间）字段；信封必须精确匹配
// "e" 与 "E" 两个 key，否则大小写不敏感回退会把数字塞进字符串字段。
func TestParser_EnvelopeNumericEventTime(t *testing.T) {
	p := NewParser("BTCUSDT")

	snap, _, err := p.Parse([]byte(`{"e":"bookTicker","E":1700000000000,"s":"BTCUSDT","b":"100.1","a":"100.3"}`))
	if err != nil {
		t.Fatalf("带数值 E 字段的消息解析失败: %v", err)
	}
	if snap == nil || snap.PxMicros != 100_200_000 {
		t.Fatalf("快照错误: %+v", snap)
	}

	_, ev, err := p.Parse([]byte(`{"e":"executionReport","E":1700000000123,"s":"BTCUSDT","S":"BUY","p":"100","l":"1","X":"FILLED","i":9}`))
	if err != nil {
		t.Fatalf("带数值 E 字段的回报解析失败: %v", err)
	}
	if ev == nil || ev.OrderID != "9" {
		t.Fatalf("成交事件错误: %+v", ev)
	}
}

func TestParser_UnknownEventIgnored(t *testing.T) {
	p := NewParser("BTCUSDT")

	snap, ev, err := p.Parse([]byte(`{"e":"depthUpdate","s":"BTCUSDT"}`))
	if err != nil || snap != nil || ev != nil {
		t.Fatalf("未知事件类型应被忽略: snap=%v ev=%v err=%v", snap, ev, err)
	}
}

func TestParser_MalformedJSON(t *testing.T) {
	p := NewParser("BTCUSDT")

	if _, _, err := p.Parse([]byte(`{broken`)); err == nil {
		t.Fatalf("非法 JSON 应报错")
	}
}
