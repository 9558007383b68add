// Package binance 实现网关消息到核心边界事件的一次性转换。
// 交易所异构消息只在本层被按名识别，进入核心后一律是封闭枚举类型。
package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"grid-market-maker/internal/core/model"
	"grid-market-maker/internal/util/timeutil"
)

// Parser 网关消息解析器
type Parser struct {
	// instrument 关注的合约标识（其余交易对的消息被过滤）
	instrument string
}

// NewParser 创建网关消息解析器
// 参数 instrument: 做市合约标识
func NewParser(instrument string) *Parser {
	return &Parser{instrument: strings.ToUpper(instrument)}
}

// Parse 解析一条原始消息
// 返回值三选一：价格快照、成交事件、或两者皆 nil（无关消息）。
// 参数 data: 原始消息字节
func (p *Parser) Parse(data []byte) (*model.PriceSnapshot, *model.FillEvent, error) {
	arrivedAt := timeutil.NowNano()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("解析消息信封失败: %w", err)
	}

	switch env.EventType {
	case "bookTicker":
		snap, err := p.parseBookTicker(data, arrivedAt)
		return snap, nil, err
	case "executionReport":
		ev, err := p.parseExecutionReport(data, arrivedAt)
		return nil, ev, err
	default:
		return nil, nil, nil
	}
}

func (p *Parser) parseBookTicker(data []byte, arrivedAt int64) (*model.PriceSnapshot, error) {
	var msg BookTicker
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 bookTicker 失败: %w", err)
	}

	if strings.ToUpper(msg.Symbol) != p.instrument {
		return nil, nil
	}

	bidMicros, err := model.PxFromString(msg.BidPx)
	if err != nil {
		return nil, fmt.Errorf("解析买价失败: %w", err)
	}
	askMicros, err := model.PxFromString(msg.AskPx)
	if err != nil {
		return nil, fmt.Errorf("解析卖价失败: %w", err)
	}
	if bidMicros <= 0 || askMicros <= 0 || bidMicros >= askMicros {
		return nil, fmt.Errorf("无效报价: bid=%d ask=%d", bidMicros, askMicros)
	}

	return &model.PriceSnapshot{
		Instrument: p.instrument,
		PxMicros:   (bidMicros + askMicros) / 2,
		TsUnixNs:   arrivedAt,
	}, nil
}

func (p *Parser) parseExecutionReport(data []byte, arrivedAt int64) (*model.FillEvent, error) {
	var msg ExecutionReport
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 executionReport 失败: %w", err)
	}

	if strings.ToUpper(msg.Symbol) != p.instrument {
		return nil, nil
	}

	status, ok := mapOrderStatus(msg.Status)
	if !ok {
		// NEW 等非成交态回报不进入核心
		return nil, nil
	}

	pxMicros, err := model.PxFromString(msg.Px)
	if err != nil {
		return nil, fmt.Errorf("解析委托价格失败: %w", err)
	}
	qtyMicros := int64(0)
	if msg.LastQty != "" {
		if qtyMicros, err = model.PxFromString(msg.LastQty); err != nil {
			return nil, fmt.Errorf("解析成交数量失败: %w", err)
		}
	}

	return &model.FillEvent{
		OrderID:         strconv.FormatInt(msg.OrderID, 10),
		Instrument:      p.instrument,
		PxMicros:        pxMicros,
		Status:          status,
		QtyMicros:       qtyMicros,
		Side:            strings.ToLower(msg.Side),
		ArrivedAtUnixNs: arrivedAt,
	}, nil
}

// mapOrderStatus 将交易所订单状态映射为核心封闭枚举
// 这是整个系统里唯一按字符串识别交易所状态的位置。
func mapOrderStatus(s string) (model.FillStatus, bool) {
	switch s {
	case "FILLED":
		return model.FillFilled, true
	case "PARTIALLY_FILLED":
		return model.FillPartial, true
	case "CANCELED", "EXPIRED":
		return model.FillCanceled, true
	case "REJECTED":
		return model.FillRejected, true
	default:
		return "", false
	}
}
