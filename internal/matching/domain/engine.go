// Package domain 批量双边清算的领域模型：订单身份注册、逐对可行性与成本
// 构建、清算模型求解以及带一致性校验的成交提取。
package domain

import (
	"math"

	"github.com/fieldfresh/mate/pkg/solver"
)

// Allocation 求解得到的配额。Flow[u][v] 为买单 u 从卖单 v 拿到的数量。
// Optimal 为 false 表示预算内的最优可行解而非被证明的最优解。
type Allocation struct {
	Flow      [][]int64
	Objective float64
	Optimal   bool
}

// Engine 清算引擎的三阶段能力接口。三个阶段严格顺序执行，每阶段依赖
// 前一阶段的完整输出；任一阶段出错即放弃本轮，不做阶段级重试。
// 不同的清算策略（例如贪心兜底）可以各自实现本接口。
type Engine interface {
	BuildParameters(orders *OrderSet) (*ModelParams, error)
	Solve(params *ModelParams) (*Allocation, error)
	ExtractMatches(orders *OrderSet, params *ModelParams, alloc *Allocation) (*MatchSet, error)
}

// Result 一轮清算的产出
type Result struct {
	Matches   *MatchSet
	Objective float64
	Optimal   bool
}

// Clear 按固定顺序驱动引擎的三个阶段。orders 必须已密封，
// 清算期间不得再被修改。
func Clear(e Engine, orders *OrderSet) (*Result, error) {
	params, err := e.BuildParameters(orders)
	if err != nil {
		return nil, err
	}
	alloc, err := e.Solve(params)
	if err != nil {
		return nil, err
	}
	matches, err := e.ExtractMatches(orders, params, alloc)
	if err != nil {
		return nil, err
	}
	return &Result{Matches: matches, Objective: alloc.Objective, Optimal: alloc.Optimal}, nil
}

// MIPEngine 基于混合整数规划的清算引擎。UnitTransactionCost 必须由调用方
// 显式给出，没有隐式默认值；MaxSolveNodes 为 0 表示不限节点预算。
type MIPEngine struct {
	UnitTransactionCost float64
	MaxSolveNodes       int
}

// NewMIPEngine 创建引擎。引擎本身无共享可变状态，可被多轮并发使用。
func NewMIPEngine(unitTransactionCost float64, maxSolveNodes int) *MIPEngine {
	return &MIPEngine{
		UnitTransactionCost: unitTransactionCost,
		MaxSolveNodes:       maxSolveNodes,
	}
}

// BuildParameters 构建可行性与成本参数
func (e *MIPEngine) BuildParameters(orders *OrderSet) (*ModelParams, error) {
	return BuildParams(orders, e.UnitTransactionCost), nil
}

// Solve 构建并求解清算模型。约束始终允许全零解，因此不可行/无界
// 只能是建模或后端缺陷，包装成 SolveError 上抛。
func (e *MIPEngine) Solve(params *ModelParams) (*Allocation, error) {
	model := buildClearingModel(params)

	sol, err := model.prob.Solve(solver.Options{MaxNodes: e.MaxSolveNodes})
	if err != nil {
		return nil, &SolveError{Err: err}
	}

	nBuy := len(params.Demand)
	nSell := len(params.Supply)
	flow := make([][]int64, nBuy)
	for u := 0; u < nBuy; u++ {
		flow[u] = make([]int64, nSell)
		for v := 0; v < nSell; v++ {
			flow[u][v] = int64(math.Round(sol.Values[model.x[u][v]]))
		}
	}

	return &Allocation{Flow: flow, Objective: sol.Objective, Optimal: sol.Optimal}, nil
}

// ExtractMatches 把正流量的 (买, 卖) 对转成成交。价格用原始订单边界重新
// 推导并与模型参数比对，数量不得超过任一侧的订单量；任何偏差都说明索引
// 映射出了问题，返回 ConsistencyError 放弃本轮。遍历顺序为买单准入序在
// 外、卖单准入序在内，保证成交 ID 可复现。
func (e *MIPEngine) ExtractMatches(orders *OrderSet, params *ModelParams, alloc *Allocation) (*MatchSet, error) {
	matches := NewMatchSet()

	for u, buy := range orders.BuyOrders() {
		for v, sell := range orders.SellOrders() {
			quantity := alloc.Flow[u][v]
			if quantity <= 0 {
				continue
			}

			price := MidpointPriceCents(buy.MaxPriceCents, sell.MinPriceCents)
			if price != MidpointPriceCents(params.PriceCeiling[u], params.PriceFloor[v]) {
				return nil, &ConsistencyError{
					BuyOrderID:  buy.OrderID,
					SellOrderID: sell.OrderID,
					Reason:      "price derived from orders disagrees with model parameters",
				}
			}
			if quantity > buy.Quantity || quantity > sell.Quantity {
				return nil, &ConsistencyError{
					BuyOrderID:  buy.OrderID,
					SellOrderID: sell.OrderID,
					Reason:      "matched quantity exceeds an order's requested quantity",
				}
			}

			matches.Add(buy, sell, price, quantity)
		}
	}

	return matches, nil
}
