package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOrder 订单外部 ID 在本轮已存在（买卖两侧共用同一命名空间）
	ErrDuplicateOrder = errors.New("duplicate order id")
	// ErrOrderNotFound 按外部 ID 查询不到订单
	ErrOrderNotFound = errors.New("order not found")
)

// ValidationError 订单字段校验失败（数量、价格、时间窗等）
type ValidationError struct {
	OrderID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order %s: field %s %s", e.OrderID, e.Field, e.Reason)
}

// ConsistencyError 求解结果与原始订单不一致，说明模型与订单集合之间的
// 索引映射出了问题。这是致命错误：本轮必须放弃，绝不能发布部分结果。
type ConsistencyError struct {
	BuyOrderID  string
	SellOrderID string
	Reason      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent match between buy %s and sell %s: %s",
		e.BuyOrderID, e.SellOrderID, e.Reason)
}

// SolveError 底层求解器报告不可行/无界/内部错误。清算模型始终允许全零解，
// 所以这只会由建模或后端缺陷触发，向上传播而不吞掉。
type SolveError struct {
	Err error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("clearing solve failed: %v", e.Err)
}

func (e *SolveError) Unwrap() error { return e.Err }
