package domain

import "github.com/fieldfresh/mate/pkg/solver"

// clearingModel 一轮清算的混合整数规划。变量与约束只服务一次求解，
// 求解后即丢弃，不跨轮复用。
//
// 变量（u 遍历买单、v 遍历卖单）：
//
//	x[u][v] 非负整数，买单 u 由卖单 v 成交的数量
//	w[u][v] 二元，该对是否有任何成交
//	y[u]    二元，买单 u 是否被完整满足
//
// 目标：最大化 Σ x·midpointPrice − cost·w
type clearingModel struct {
	prob *solver.Problem
	x    [][]int
	w    [][]int
	y    []int
}

// pairBound (买 u, 卖 v) 成交量的最小上界：既不超过买方需求也不超过
// 卖方供给。指示约束用它做开关系数：对该对而言它仍严格大于等于任何
// 可行流量，同时与行内其他系数同量级，LP 松弛不会因巨大系数病态。
func pairBound(demand, supply int64) float64 {
	if demand < supply {
		return float64(demand)
	}
	return float64(supply)
}

func buildClearingModel(p *ModelParams) *clearingModel {
	nBuy := len(p.Demand)
	nSell := len(p.Supply)

	m := &clearingModel{
		prob: solver.NewProblem(true),
		x:    make([][]int, nBuy),
		w:    make([][]int, nBuy),
		y:    make([]int, nBuy),
	}

	for u := 0; u < nBuy; u++ {
		m.x[u] = make([]int, nSell)
		m.w[u] = make([]int, nSell)
		for v := 0; v < nSell; v++ {
			price := float64(MidpointPriceCents(p.PriceCeiling[u], p.PriceFloor[v]))
			m.x[u][v] = m.prob.AddVar(solver.Variable{
				Name:  "x",
				Type:  solver.Integer,
				Lower: 0,
				Upper: pairBound(p.Demand[u], p.Supply[v]),
				Obj:   price,
			})
			m.w[u][v] = m.prob.AddVar(solver.Variable{
				Name: "w",
				Type: solver.Binary,
				Obj:  -p.Cost[u][v],
			})
		}
		m.y[u] = m.prob.AddVar(solver.Variable{Name: "y", Type: solver.Binary})
	}

	// 1. 供给上限：每张卖单的总流出不超过供给量
	for v := 0; v < nSell; v++ {
		coeffs := make(map[int]float64, nBuy)
		for u := 0; u < nBuy; u++ {
			coeffs[m.x[u][v]] = 1
		}
		m.prob.AddCons(solver.Constraint{
			Name:   "supply",
			Coeffs: coeffs,
			Sense:  solver.LessEq,
			RHS:    float64(p.Supply[v]),
		})
	}

	// 2. 需求全有或全无：买单要么被完整满足（可拆给多个卖家），要么完全不成交
	for u := 0; u < nBuy; u++ {
		coeffs := make(map[int]float64, nSell+1)
		for v := 0; v < nSell; v++ {
			coeffs[m.x[u][v]] = 1
		}
		coeffs[m.y[u]] = -float64(p.Demand[u])
		m.prob.AddCons(solver.Constraint{
			Name:   "demand",
			Coeffs: coeffs,
			Sense:  solver.Equal,
			RHS:    0,
		})
	}

	for u := 0; u < nBuy; u++ {
		for v := 0; v < nSell; v++ {
			price := float64(MidpointPriceCents(p.PriceCeiling[u], p.PriceFloor[v]))
			bound := pairBound(p.Demand[u], p.Supply[v])

			// 3. 活跃绑定：有流量则 w 必须为 1
			m.prob.AddCons(solver.Constraint{
				Name:   "bind",
				Coeffs: map[int]float64{m.x[u][v]: 1, m.w[u][v]: -bound},
				Sense:  solver.LessEq,
				RHS:    0,
			})

			// 4. 成交对利润非负：成交额必须覆盖该对的交易成本
			m.prob.AddCons(solver.Constraint{
				Name:   "profit",
				Coeffs: map[int]float64{m.x[u][v]: price, m.w[u][v]: -p.Cost[u][v]},
				Sense:  solver.GreaterEq,
				RHS:    0,
			})

			// 5. 可行掩码：不可行对强制零流量
			mask := 0.0
			if p.Feasible[u][v] {
				mask = bound
			}
			m.prob.AddCons(solver.Constraint{
				Name:   "mask",
				Coeffs: map[int]float64{m.x[u][v]: 1},
				Sense:  solver.LessEq,
				RHS:    mask,
			})
		}
	}

	return m
}
