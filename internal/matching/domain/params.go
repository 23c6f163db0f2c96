package domain

import "github.com/fieldfresh/mate/pkg/geo"

// ModelParams 清算模型的参数集：按买单索引的价格上限/需求量、按卖单索引
// 的价格下限/供给量、按 (买, 卖) 索引对的交易成本与可行标志。
type ModelParams struct {
	PriceCeiling []int64
	Demand       []int64
	PriceFloor   []int64
	Supply       []int64

	// Cost[u][v] 成交一单位距离成本，Feasible[u][v] 该对是否允许成交
	Cost     [][]float64
	Feasible [][]bool

	UnitTransactionCost float64
}

// BuildParams 对每个 (买, 卖) 对计算成本与可行性。复杂度有意为
// O(|买|×|卖|)，这是单轮清算的主要开销，内层循环不做任何额外扫描。
//
// 可行条件（全部成立才为真）：
//  1. 同一产品索引；
//  2. 时间窗重叠：buy.expiry >= sell.activation 且 sell.expiry >= buy.activation；
//  3. 两点距离不超过卖方配送半径；
//  4. 价格相容：buy.max_price >= sell.min_price。
func BuildParams(orders *OrderSet, unitTransactionCost float64) *ModelParams {
	buys := orders.BuyOrders()
	sells := orders.SellOrders()

	p := &ModelParams{
		PriceCeiling:        make([]int64, len(buys)),
		Demand:              make([]int64, len(buys)),
		PriceFloor:          make([]int64, len(sells)),
		Supply:              make([]int64, len(sells)),
		Cost:                make([][]float64, len(buys)),
		Feasible:            make([][]bool, len(buys)),
		UnitTransactionCost: unitTransactionCost,
	}

	for v, sell := range sells {
		p.PriceFloor[v] = sell.MinPriceCents
		p.Supply[v] = sell.Quantity
	}

	for u, buy := range buys {
		p.PriceCeiling[u] = buy.MaxPriceCents
		p.Demand[u] = buy.Quantity
		p.Cost[u] = make([]float64, len(sells))
		p.Feasible[u] = make([]bool, len(sells))

		for v, sell := range sells {
			dist := geo.Distance(buy.Lat, buy.Long, sell.Lat, sell.Long)
			p.Cost[u][v] = dist * unitTransactionCost
			p.Feasible[u][v] = buy.ProductIndex == sell.ProductIndex &&
				buy.TimeExpiry >= sell.TimeActivation &&
				sell.TimeExpiry >= buy.TimeActivation &&
				dist <= sell.ServiceRange &&
				buy.MaxPriceCents >= sell.MinPriceCents
		}
	}

	return p
}
