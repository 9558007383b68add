// Package model 定义做市核心中使用的数据结构。
// 包含价格快照、槽位状态、订单快照、成交事件等核心类型。
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale 价格定点缩放位数
// 所有价格以 10^-6（micro）为单位的 int64 表示，
// 槽位以该整数为 key，避免 float64 做 map key 的精度问题。
const PriceScale = 6

// PriceSnapshot 不可变价格快照
// 每次行情更新整体替换，任何字段不原地修改；
// 消费方只会收到值拷贝或只读引用。
type PriceSnapshot struct {
	// Instrument 合约标识，如 BTCUSDT
	Instrument string
	// PxMicros 价格（micro 单位，10^-6）
	PxMicros int64
	// TsUnixNs 本机收到该价格的时间戳（纳秒）
	TsUnixNs int64
}

// IsValid 检查价格快照是否有效
// 有效条件: 合约非空且价格为正
func (p PriceSnapshot) IsValid() bool {
	return p.Instrument != "" && p.PxMicros > 0
}

// Px 获取价格的浮点表示（仅用于展示与日志）
func (p PriceSnapshot) Px() float64 {
	return float64(p.PxMicros) / 1e6
}

// Ts 获取快照时间的 time.Time 表示
func (p PriceSnapshot) Ts() time.Time {
	return time.Unix(0, p.TsUnixNs)
}

// PxFromString 将交易所返回的字符串价格精确转换为 micro 定点值
// 使用 decimal 避免 float64 中转造成的精度损失（槽位 key 必须精确）。
// 参数 s: 十进制字符串价格，如 "65432.10"
// 返回: micro 定点价格
func PxFromString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("解析价格失败: %w", err)
	}
	return d.Shift(PriceScale).IntPart(), nil
}

// PxToString 将 micro 定点价格转换回十进制字符串
// 参数 pxMicros: micro 定点价格
func PxToString(pxMicros int64) string {
	return decimal.New(pxMicros, -PriceScale).String()
}
