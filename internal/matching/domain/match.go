package domain

// Match 一笔成交：引用产生它的原始订单对象而非副本。构造后不可变。
type Match struct {
	MatchID    int
	Buy        *BuyOrder
	Sell       *SellOrder
	PriceCents int64
	Quantity   int64
}

// MatchRecord Match 的扁平外发格式。字段名与类型是既有消费方依赖的
// 持久化契约，必须逐字节保持。
type MatchRecord struct {
	MatchID    int    `json:"matchId"`
	BuyOrder   string `json:"buyOrder"`
	SellOrder  string `json:"sellOrder"`
	Volume     int64  `json:"volume"`
	PriceCents int64  `json:"priceCents"`
}

// Record 导出外发记录
func (m *Match) Record() MatchRecord {
	return MatchRecord{
		MatchID:    m.MatchID,
		BuyOrder:   m.Buy.OrderID,
		SellOrder:  m.Sell.OrderID,
		Volume:     m.Quantity,
		PriceCents: m.PriceCents,
	}
}

// MatchSet 单轮的成交集合，只追加。成交 ID 从 0 起单调连续递增，
// 插入顺序即发布顺序。同时维护至少成交过一次的买家/卖家索引集。
type MatchSet struct {
	matches        []*Match
	matchedBuyers  map[int]struct{}
	matchedSellers map[int]struct{}
}

// NewMatchSet 创建空集合
func NewMatchSet() *MatchSet {
	return &MatchSet{
		matchedBuyers:  make(map[int]struct{}),
		matchedSellers: make(map[int]struct{}),
	}
}

// Add 构造一笔成交并追加，ID 取当前计数
func (s *MatchSet) Add(buy *BuyOrder, sell *SellOrder, priceCents, quantity int64) *Match {
	m := &Match{
		MatchID:    len(s.matches),
		Buy:        buy,
		Sell:       sell,
		PriceCents: priceCents,
		Quantity:   quantity,
	}
	s.matches = append(s.matches, m)
	s.matchedBuyers[buy.BuyerIndex] = struct{}{}
	s.matchedSellers[sell.SellerIndex] = struct{}{}
	return m
}

// Matches 按发布顺序返回全部成交。调用方不得修改。
func (s *MatchSet) Matches() []*Match { return s.matches }

// Len 当前成交数
func (s *MatchSet) Len() int { return len(s.matches) }

// MatchedBuyers 至少成交过一次的买家索引集
func (s *MatchSet) MatchedBuyers() map[int]struct{} { return s.matchedBuyers }

// MatchedSellers 至少成交过一次的卖家索引集
func (s *MatchSet) MatchedSellers() map[int]struct{} { return s.matchedSellers }

// Records 导出全部外发记录
func (s *MatchSet) Records() []MatchRecord {
	records := make([]MatchRecord, 0, len(s.matches))
	for _, m := range s.matches {
		records = append(records, m.Record())
	}
	return records
}
