// Package binance 定义 Binance 风格网关的消息类型。
package binance

// SubscribeRequest WebSocket 订阅请求
// 订阅 bookTicker 行情流与订单回报流。
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "btcusdt@bookTicker"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// envelope 消息信封，只解出事件类型用于分发
// EventTimeMs 必须显式声明：encoding/json 对未命中的 key 做大小写
// 不敏感回退，缺了它，数值字段 "E" 会被塞进字符串字段 "e" 导致整条消息解析失败。
type envelope struct {
	// EventType 事件类型: bookTicker / executionReport
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
}

// BookTicker 最优报价推送消息（bookTicker）
// 字段映射：
// - s: Symbol -> PriceSnapshot.Instrument
// - b/a: 最优买价/卖价（字符串），中间价 -> PriceSnapshot.PxMicros
type BookTicker struct {
	// EventType 事件类型: bookTicker
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// BidPx 最优买价（字符串）
	BidPx string `json:"b"`
	// AskPx 最优卖价（字符串）
	AskPx string `json:"a"`
}

// ExecutionReport 订单回报消息（executionReport）
// 字段映射：
// - i: 订单号 -> FillEvent.OrderID
// - X: 订单状态 -> FillEvent.Status（封闭枚举，在此一次性转换）
// - p/l: 价格/本次成交量（字符串）-> micro 定点
type ExecutionReport struct {
	// EventType 事件类型: executionReport
	EventType string `json:"e"`
	// EventTimeMs 事件时间（毫秒）
	EventTimeMs int64 `json:"E"`
	// Symbol 交易对（大写）
	Symbol string `json:"s"`
	// Side 方向: BUY / SELL
	Side string `json:"S"`
	// Px 委托价格（字符串）
	Px string `json:"p"`
	// LastQty 本次成交数量（字符串）
	LastQty string `json:"l"`
	// Status 订单状态: FILLED / PARTIALLY_FILLED / CANCELED / REJECTED / EXPIRED
	Status string `json:"X"`
	// OrderID 交易所订单号
	OrderID int64 `json:"i"`
	// ClientOrderID 客户端订单号
	ClientOrderID string `json:"c"`
}

// PositionResponse 持仓查询响应
type PositionResponse struct {
	// Symbol 交易对
	Symbol string `json:"symbol"`
	// PositionAmt 持仓数量（字符串，带符号）
	PositionAmt string `json:"positionAmt"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
}
