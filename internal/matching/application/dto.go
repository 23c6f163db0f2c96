// Package application 撮合服务的应用层：按轮次聚合订单事件，凑齐后驱动
// 清算引擎，并把成交分片发布出去。
package application

// 订单创建事件类型
const (
	EventTypeBuyOrderCreated  = "buyOrderCreated"
	EventTypeSellOrderCreated = "sellOrderCreated"
)

// Timestamp 事件里的时间戳，只携带 Unix 秒
type Timestamp struct {
	Seconds int64 `json:"seconds"`
}

// OrderBody 订单创建事件的内层订单记录。买单携带 maxPriceCents，
// 卖单携带 minPriceCents 与 serviceRadius。
type OrderBody struct {
	ID           string    `json:"id"`
	ProxyID      string    `json:"proxyId"`
	ProductID    string    `json:"productId"`
	Volume       int64     `json:"volume"`
	EarliestDate Timestamp `json:"earliestDate"`
	LatestDate   Timestamp `json:"latestDate"`
	Lat          float64   `json:"lat"`
	Long         float64   `json:"long"`

	MaxPriceCents *int64   `json:"maxPriceCents,omitempty"`
	MinPriceCents *int64   `json:"minPriceCents,omitempty"`
	ServiceRadius *float64 `json:"serviceRadius,omitempty"`
}

// OrderCreatedPayload 中层信封：批次 ID 与该侧订单总数。
// 两侧都集齐 totalMessageCount 条后该轮才可清算。
type OrderCreatedPayload struct {
	TotalMessageCount int       `json:"totalMessageCount"`
	BatchID           string    `json:"batchId"`
	Message           OrderBody `json:"message"`
}

// OrderCreatedEvent 订单创建事件的外层信封
type OrderCreatedEvent struct {
	Type    string              `json:"type"`
	Message OrderCreatedPayload `json:"message"`
}

// ReadyEvent 周期性的服务就绪公告
type ReadyEvent struct {
	ReadyTimeUTCSeconds int64 `json:"readyTimeUTCSeconds"`
	Round               int64 `json:"round"`
}

// RoundStatus 轮次进度查询结果
type RoundStatus struct {
	RoundID            string `json:"roundId"`
	BuyOrders          int    `json:"buyOrders"`
	SellOrders         int    `json:"sellOrders"`
	ExpectedBuyOrders  int    `json:"expectedBuyOrders"`
	ExpectedSellOrders int    `json:"expectedSellOrders"`
	Sealed             bool   `json:"sealed"`
}
