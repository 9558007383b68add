// Package binance 实现持仓查询 REST 客户端。
// 阻塞调用，仅供协调器在槽位锁释放之后使用。
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"grid-market-maker/internal/core/model"
)

// PositionClient 持仓查询 REST 客户端
// 实现 fill.PositionFetcher 接口。
type PositionClient struct {
	// baseURL 持仓查询地址
	baseURL string
	// client HTTP 客户端
	client *http.Client
}

// NewPositionClient 创建持仓查询客户端
// 参数 baseURL: 持仓查询地址
// 参数 timeoutMs: HTTP 请求超时时间（毫秒）
func NewPositionClient(baseURL string, timeoutMs int) *PositionClient {
	return &PositionClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: time.Duration(timeoutMs) * time.Millisecond,
		},
	}
}

// FetchPosition 查询指定合约的当前持仓
// 参数 ctx: 上下文，用于取消请求
// 参数 instrument: 合约标识
// 返回: 持仓数量（micro 定点，带符号）
func (p *PositionClient) FetchPosition(ctx context.Context, instrument string) (int64, error) {
	u := fmt.Sprintf("%s?symbol=%s", p.baseURL, url.QueryEscape(instrument))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("构造持仓查询请求失败: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("请求持仓失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("持仓查询返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("读取持仓响应失败: %w", err)
	}

	var pos PositionResponse
	if err := json.Unmarshal(body, &pos); err != nil {
		return 0, fmt.Errorf("解析持仓响应失败: %w", err)
	}

	qtyMicros, err := model.PxFromString(pos.PositionAmt)
	if err != nil {
		return 0, fmt.Errorf("解析持仓数量失败: %w", err)
	}
	return qtyMicros, nil
}
