package domain

import "github.com/shopspring/decimal"

// AgentProduct (代理, 产品) 索引对，未成交需求/未售出供给按它聚合
type AgentProduct struct {
	AgentIndex   int
	ProductIndex int
}

// RoundSummary 一轮清算的派生汇总，供仿真与校验工具使用，生产链路不依赖。
// 金额用 decimal 计算避免浮点累加误差。
type RoundSummary struct {
	// BuyerSurplus 按买家索引：Σ (价格上限 − 成交价) × 数量
	BuyerSurplus map[int]decimal.Decimal
	// SellerSurplus 按卖家索引：Σ (成交价 − 价格下限) × 数量 − 交易成本
	SellerSurplus map[int]decimal.Decimal
	// UnmatchedDemand 未被满足的买单数量，按 (买家, 产品) 聚合
	UnmatchedDemand map[AgentProduct]int64
	// UnsoldSupply 未售出的卖单数量，按 (卖家, 产品) 聚合
	UnsoldSupply map[AgentProduct]int64

	MatchedBuyers  map[int]struct{}
	MatchedSellers map[int]struct{}
}

// Summarize 从成交集合推导汇总。需求全有或全无，所以每张买单的成交量
// 要么为 0 要么等于其需求量。
func Summarize(orders *OrderSet, params *ModelParams, matches *MatchSet) *RoundSummary {
	s := &RoundSummary{
		BuyerSurplus:    make(map[int]decimal.Decimal),
		SellerSurplus:   make(map[int]decimal.Decimal),
		UnmatchedDemand: make(map[AgentProduct]int64),
		UnsoldSupply:    make(map[AgentProduct]int64),
		MatchedBuyers:   matches.MatchedBuyers(),
		MatchedSellers:  matches.MatchedSellers(),
	}

	buyFilled := make(map[int]int64)
	sellSold := make(map[int]int64)

	for _, m := range matches.Matches() {
		price := decimal.NewFromInt(m.PriceCents)
		quantity := decimal.NewFromInt(m.Quantity)

		buyerGain := decimal.NewFromInt(m.Buy.MaxPriceCents).Sub(price).Mul(quantity)
		s.BuyerSurplus[m.Buy.BuyerIndex] = s.BuyerSurplus[m.Buy.BuyerIndex].Add(buyerGain)

		cost := decimal.NewFromFloat(params.Cost[m.Buy.OrderIndex][m.Sell.OrderIndex])
		sellerGain := price.Sub(decimal.NewFromInt(m.Sell.MinPriceCents)).Mul(quantity).Sub(cost)
		s.SellerSurplus[m.Sell.SellerIndex] = s.SellerSurplus[m.Sell.SellerIndex].Add(sellerGain)

		buyFilled[m.Buy.OrderIndex] += m.Quantity
		sellSold[m.Sell.OrderIndex] += m.Quantity
	}

	for _, buy := range orders.BuyOrders() {
		if buyFilled[buy.OrderIndex] == 0 {
			key := AgentProduct{AgentIndex: buy.BuyerIndex, ProductIndex: buy.ProductIndex}
			s.UnmatchedDemand[key] += buy.Quantity
		}
	}
	for _, sell := range orders.SellOrders() {
		if left := sell.Quantity - sellSold[sell.OrderIndex]; left > 0 {
			key := AgentProduct{AgentIndex: sell.SellerIndex, ProductIndex: sell.ProductIndex}
			s.UnsoldSupply[key] += left
		}
	}

	return s
}
