// Package model 定义做市核心中使用的数据结构。
package model

import (
	"github.com/google/uuid"
)

// OrderRef 订单附加引用信息
// 注意：该结构可能被策略层在订单生命周期内修改（如补充标签），
// 属于可变共享对象；跨锁传递时必须深拷贝，禁止浅拷贝后再读。
type OrderRef struct {
	// Instrument 合约标识
	Instrument string
	// Side 方向: buy 或 sell
	Side string
	// Note 策略备注（可变）
	Note string
	// Tags 策略标签（可变切片）
	Tags []string
}

// Clone 创建 OrderRef 的深拷贝
// 返回的对象与原对象不共享任何底层存储。
func (r *OrderRef) Clone() *OrderRef {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Tags != nil {
		clone.Tags = make([]string, len(r.Tags))
		copy(clone.Tags, r.Tags)
	}
	return &clone
}

// TrackedOrder 跟踪订单快照
// 在槽位锁内捕获，锁释放后供慢路径（持仓查询、回调）安全使用。
// Ref 为嵌套引用字段，拷贝时必须通过 Clone 深拷贝。
type TrackedOrder struct {
	// OrderID 交易所订单号
	OrderID string
	// ClientOrderID 客户端订单号
	ClientOrderID string
	// Ref 订单附加引用（深拷贝后独立）
	Ref *OrderRef
}

// Clone 创建 TrackedOrder 的深拷贝
// 用于 copy-under-lock：锁内调用本方法，锁外只使用返回值。
func (o *TrackedOrder) Clone() *TrackedOrder {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Ref = o.Ref.Clone()
	return &clone
}

// NewClientOrderID 生成新的客户端订单号
func NewClientOrderID() string {
	return uuid.NewString()
}
