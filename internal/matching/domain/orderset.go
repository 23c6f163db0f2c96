package domain

// OrderSet 单轮清算的订单集合兼身份注册表：订单、买家/卖家、产品的字符串
// 标识在准入时被压缩成从 0 起的稠密整数索引。索引首次分配后终身不变。
// OrderSet 不做并发保护，密封后交给引擎前由积累方独占。
type OrderSet struct {
	buyOrders  []*BuyOrder
	sellOrders []*SellOrder

	byID       map[string]Order
	buyerIdx   map[string]int
	sellerIdx  map[string]int
	productIdx map[string]int
}

// NewOrderSet 创建空集合，仅服务一轮清算
func NewOrderSet() *OrderSet {
	return &OrderSet{
		byID:       make(map[string]Order),
		buyerIdx:   make(map[string]int),
		sellerIdx:  make(map[string]int),
		productIdx: make(map[string]int),
	}
}

// AddBuyOrder 校验并准入一张买单。入参按值传递，集合存储带索引的副本，
// 返回该副本的指针；调用方持有的原值不被修改。
func (s *OrderSet) AddBuyOrder(o BuyOrder) (*BuyOrder, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if _, ok := s.byID[o.OrderID]; ok {
		return nil, ErrDuplicateOrder
	}

	o.OrderIndex = len(s.buyOrders)
	o.BuyerIndex = indexFor(s.buyerIdx, o.BuyerID)
	o.ProductIndex = indexFor(s.productIdx, o.ProductID)

	admitted := &o
	s.buyOrders = append(s.buyOrders, admitted)
	s.byID[o.OrderID] = admitted
	return admitted, nil
}

// AddSellOrder 校验并准入一张卖单，语义与 AddBuyOrder 对称
func (s *OrderSet) AddSellOrder(o SellOrder) (*SellOrder, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	if _, ok := s.byID[o.OrderID]; ok {
		return nil, ErrDuplicateOrder
	}

	o.OrderIndex = len(s.sellOrders)
	o.SellerIndex = indexFor(s.sellerIdx, o.SellerID)
	o.ProductIndex = indexFor(s.productIdx, o.ProductID)

	admitted := &o
	s.sellOrders = append(s.sellOrders, admitted)
	s.byID[o.OrderID] = admitted
	return admitted, nil
}

// Lookup 按外部订单 ID 查询，未找到返回 ErrOrderNotFound
func (s *OrderSet) Lookup(orderID string) (Order, error) {
	o, ok := s.byID[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// BuyOrders 按准入顺序返回买单切片。调用方不得修改。
func (s *OrderSet) BuyOrders() []*BuyOrder { return s.buyOrders }

// SellOrders 按准入顺序返回卖单切片。调用方不得修改。
func (s *OrderSet) SellOrders() []*SellOrder { return s.sellOrders }

func (s *OrderSet) NumBuyOrders() int  { return len(s.buyOrders) }
func (s *OrderSet) NumSellOrders() int { return len(s.sellOrders) }
func (s *OrderSet) NumOrders() int     { return len(s.buyOrders) + len(s.sellOrders) }

func (s *OrderSet) NumBuyers() int   { return len(s.buyerIdx) }
func (s *OrderSet) NumSellers() int  { return len(s.sellerIdx) }
func (s *OrderSet) NumProducts() int { return len(s.productIdx) }

// indexFor 首见即注册，返回稳定的稠密索引
func indexFor(m map[string]int, key string) int {
	if idx, ok := m[key]; ok {
		return idx
	}
	idx := len(m)
	m[key] = idx
	return idx
}
