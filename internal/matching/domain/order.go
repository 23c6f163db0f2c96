package domain

// Order 买卖订单的公共只读视图，用于按外部 ID 查询
type Order interface {
	ID() string
	AgentID() string
	Product() string
	Units() int64
}

// BuyOrder 买单。价格为整数分，时间窗为 Unix 秒。
// 三个派生索引由 OrderSet 在准入时分配，准入前为零值。
type BuyOrder struct {
	OrderID   string
	BuyerID   string
	ProductID string

	MaxPriceCents  int64
	Quantity       int64
	TimeActivation int64
	TimeExpiry     int64
	Lat            float64
	Long           float64

	OrderIndex   int
	BuyerIndex   int
	ProductIndex int
}

func (o *BuyOrder) ID() string      { return o.OrderID }
func (o *BuyOrder) AgentID() string { return o.BuyerID }
func (o *BuyOrder) Product() string { return o.ProductID }
func (o *BuyOrder) Units() int64    { return o.Quantity }

func (o *BuyOrder) validate() error {
	if err := validateCommon(o.OrderID, o.Quantity, o.MaxPriceCents, o.TimeActivation, o.TimeExpiry); err != nil {
		return err
	}
	return nil
}

// SellOrder 卖单。ServiceRange 是卖方愿意配送的最大公里数。
type SellOrder struct {
	OrderID   string
	SellerID  string
	ProductID string

	MinPriceCents  int64
	Quantity       int64
	TimeActivation int64
	TimeExpiry     int64
	Lat            float64
	Long           float64
	ServiceRange   float64

	OrderIndex   int
	SellerIndex  int
	ProductIndex int
}

func (o *SellOrder) ID() string      { return o.OrderID }
func (o *SellOrder) AgentID() string { return o.SellerID }
func (o *SellOrder) Product() string { return o.ProductID }
func (o *SellOrder) Units() int64    { return o.Quantity }

func (o *SellOrder) validate() error {
	if err := validateCommon(o.OrderID, o.Quantity, o.MinPriceCents, o.TimeActivation, o.TimeExpiry); err != nil {
		return err
	}
	if o.ServiceRange < 0 {
		return &ValidationError{OrderID: o.OrderID, Field: "service_range", Reason: "must be >= 0"}
	}
	return nil
}

func validateCommon(id string, quantity, priceCents, activation, expiry int64) error {
	if id == "" {
		return &ValidationError{OrderID: id, Field: "order_id", Reason: "must not be empty"}
	}
	if quantity <= 0 {
		return &ValidationError{OrderID: id, Field: "quantity", Reason: "must be > 0"}
	}
	if priceCents < 0 {
		return &ValidationError{OrderID: id, Field: "price_cents", Reason: "must be >= 0"}
	}
	if activation > expiry {
		return &ValidationError{OrderID: id, Field: "time_window", Reason: "activation must be <= expiry"}
	}
	return nil
}

// MidpointPriceCents 成交价规则：买方上限与卖方下限均值向上取整。
// 价格只从这两个边界推导，没有其他来源。
func MidpointPriceCents(maxPriceCents, minPriceCents int64) int64 {
	return (maxPriceCents + minPriceCents + 1) / 2
}
