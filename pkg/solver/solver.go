// Package solver 提供一个小型混合整数线性规划求解器，对外只暴露
// 变量/约束/目标的窄接口，使清算模型不依赖任何具体后端。
// LP 松弛由 gonum 的单纯形法求解，整数性通过对变量边界做分支定界保证。
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// VarType 决策变量的类型
type VarType int

const (
	// Continuous 连续变量，可取边界内任意值
	Continuous VarType = iota
	// Integer 整数变量
	Integer
	// Binary 二元变量，取值限于 {0, 1}
	Binary
)

// Sense 线性约束的关系符
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// Variable 决策变量。Obj 是它在目标函数中的系数。
type Variable struct {
	Name  string
	Type  VarType
	Lower float64
	Upper float64
	Obj   float64
}

// Constraint 以变量索引为键的稀疏线性约束
type Constraint struct {
	Name   string
	Coeffs map[int]float64
	Sense  Sense
	RHS    float64
}

// Problem 混合整数线性规划。问题实例只用一次：构建、求解、丢弃。
type Problem struct {
	vars     []Variable
	cons     []Constraint
	maximize bool
}

// Options 限制搜索开销
type Options struct {
	// MaxNodes 限制分支定界探索的节点数，0 表示不限制。
	// 达到上限时返回当前最优候选解并把 Optimal 置为 false。
	MaxNodes int
}

// Solution 求解得到的变量取值。Optimal 表示搜索是否证明了最优性，
// 为 false 时表示预算内找到的最优可行解。
type Solution struct {
	Values    []float64
	Objective float64
	Optimal   bool
	Nodes     int
}

var (
	// ErrInfeasible 不存在满足全部约束的取值
	ErrInfeasible = errors.New("solver: problem is infeasible")
	// ErrUnbounded 目标可以无限改进
	ErrUnbounded = errors.New("solver: problem is unbounded")
	// ErrNoIncumbent 节点预算耗尽时还没有找到任何整数可行解
	ErrNoIncumbent = errors.New("solver: node budget exhausted without an integer-feasible solution")

	errNodeInfeasible = errors.New("solver: node relaxation infeasible")
	errNodeUnbounded  = errors.New("solver: node relaxation unbounded")
)

const (
	// intTol 松弛解与整数的距离小于该值时视为整数
	intTol = 1e-6
	// feasTol 复核整数候选解时容忍的约束违反绝对值
	feasTol = 1e-6
	// pruneTol 防止节点上界的舍入噪声误剪掉在位最优解
	pruneTol = 1e-7
)

// NewProblem 创建空问题，maximize 选择目标方向
func NewProblem(maximize bool) *Problem {
	return &Problem{maximize: maximize}
}

// AddVar 追加一个变量并返回其索引。二元变量的边界强制为 [0, 1]，
// 忽略传入的边界。
func (p *Problem) AddVar(v Variable) int {
	if v.Type == Binary {
		v.Lower = 0
		v.Upper = 1
	}
	p.vars = append(p.vars, v)
	return len(p.vars) - 1
}

// AddCons 追加一条约束
func (p *Problem) AddCons(c Constraint) {
	p.cons = append(p.cons, c)
}

// NumVars 当前变量数
func (p *Problem) NumVars() int { return len(p.vars) }

// Solve 运行分支定界，返回最优的整数可行解
func (p *Problem) Solve(opts Options) (*Solution, error) {
	n := len(p.vars)
	if n == 0 {
		return &Solution{Optimal: true}, nil
	}

	baseLo := make([]float64, n)
	baseUp := make([]float64, n)
	for i, v := range p.vars {
		if math.IsInf(v.Lower, -1) {
			return nil, fmt.Errorf("solver: variable %d (%q) needs a finite lower bound", i, v.Name)
		}
		if v.Upper < v.Lower {
			return nil, ErrInfeasible
		}
		baseLo[i] = v.Lower
		baseUp[i] = v.Upper
	}

	sign := 1.0
	if !p.maximize {
		sign = -1
	}

	var best []float64
	bestObj := math.Inf(-1)
	haveBest := false

	// 下界角点（清算模型里即全零解）作为在位解的种子，
	// 预算受限的求解也能返回可行答案
	seed := append([]float64(nil), baseLo...)
	if p.integral(seed) && p.satisfies(seed, baseLo, baseUp) {
		best = seed
		bestObj = sign * p.rawObjective(seed)
		haveBest = true
	}

	type node struct{ lo, up []float64 }
	stack := []node{{baseLo, baseUp}}
	nodes := 0
	exhausted := false

	for len(stack) > 0 {
		if opts.MaxNodes > 0 && nodes >= opts.MaxNodes {
			exhausted = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		vals, bound, err := p.solveRelaxation(nd.lo, nd.up, sign)
		switch {
		case errors.Is(err, errNodeInfeasible):
			continue
		case errors.Is(err, errNodeUnbounded):
			if nodes == 1 {
				return nil, ErrUnbounded
			}
			continue
		case err != nil:
			return nil, err
		}

		if haveBest && bound <= bestObj+pruneTol {
			continue
		}

		bi := p.mostFractional(vals, intTol)
		if bi < 0 {
			cand := p.roundCandidate(vals, nd.lo, nd.up)
			if p.satisfies(cand, baseLo, baseUp) {
				cobj := sign * p.rawObjective(cand)
				if !haveBest || cobj > bestObj {
					best, bestObj, haveBest = cand, cobj, true
				}
				continue
			}
			// 取整破坏了某条约束（比如指示变量被压到略高于零）。
			// 对最不接近整数的变量继续分支，而不是丢弃整棵子树。
			bi = p.mostFractional(vals, 0)
			if bi < 0 {
				continue
			}
		}

		floor := math.Floor(vals[bi])
		if vals[bi]-floor <= intTol {
			// 极小的正小数部分：在它下方的整数处切分
			floor = math.Round(vals[bi]) - 1
			if floor < nd.lo[bi] {
				floor = nd.lo[bi]
			}
		}

		downUp := append([]float64(nil), nd.up...)
		downUp[bi] = floor
		upLo := append([]float64(nil), nd.lo...)
		upLo[bi] = floor + 1

		// 先压入下取整子节点，让上取整子节点（清算模型中更可能携带
		// 流量的一侧）先被探索
		if downUp[bi] >= nd.lo[bi] {
			stack = append(stack, node{lo: nd.lo, up: downUp})
		}
		if upLo[bi] <= nd.up[bi] {
			stack = append(stack, node{lo: upLo, up: nd.up})
		}
	}

	if !haveBest {
		if exhausted {
			return nil, ErrNoIncumbent
		}
		return nil, ErrInfeasible
	}

	return &Solution{
		Values:    best,
		Objective: p.rawObjective(best),
		Optimal:   !exhausted,
		Nodes:     nodes,
	}, nil
}

// solveRelaxation 在节点边界下求解 LP 松弛，返回变量取值与该节点的
// 上界（内部统一按最大化方向）。
func (p *Problem) solveRelaxation(lo, up []float64, sign float64) ([]float64, float64, error) {
	n := len(p.vars)

	// 平移 z = x - lo，使每一列都非负
	type row struct {
		coeffs map[int]float64
		rhs    float64
		slack  float64 // +1 松弛列，-1 剩余列，0 等式
	}
	var rows []row

	for i := range p.cons {
		c := &p.cons[i]
		rhs := c.RHS
		for j, a := range c.Coeffs {
			rhs -= a * lo[j]
		}
		var slack float64
		switch c.Sense {
		case LessEq:
			slack = 1
		case GreaterEq:
			slack = -1
		}
		rows = append(rows, row{coeffs: c.Coeffs, rhs: rhs, slack: slack})
	}
	for j := 0; j < n; j++ {
		if math.IsInf(up[j], 1) {
			continue
		}
		if up[j] < lo[j] {
			return nil, 0, errNodeInfeasible
		}
		rows = append(rows, row{coeffs: map[int]float64{j: 1}, rhs: up[j] - lo[j], slack: 1})
	}

	// 内部目标：最大化 g·x，g = sign*Obj
	g := make([]float64, n)
	offset := 0.0
	for j := range p.vars {
		g[j] = sign * p.vars[j].Obj
		offset += g[j] * lo[j]
	}

	if len(rows) == 0 {
		// 完全没有约束：每个变量停在系数偏好的那一侧边界；
		// 正系数变量没有产生上界行，说明无界
		vals := make([]float64, n)
		for j := range vals {
			if g[j] > 0 {
				return nil, 0, errNodeUnbounded
			}
			vals[j] = lo[j]
		}
		return vals, offset, nil
	}

	m := len(rows)
	nSlack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nSlack++
		}
	}
	cols := n + nSlack

	a := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	c := make([]float64, cols)
	for j := 0; j < n; j++ {
		c[j] = -g[j] // 单纯形法求最小化
	}

	si := n
	for i, r := range rows {
		for j, v := range r.coeffs {
			a.Set(i, j, v)
		}
		if r.slack != 0 {
			a.Set(i, si, r.slack)
			si++
		}
		b[i] = r.rhs
	}

	optF, optX, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, 0, errNodeInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, 0, errNodeUnbounded
		default:
			return nil, 0, fmt.Errorf("solver: lp relaxation failed: %w", err)
		}
	}

	vals := make([]float64, n)
	for j := 0; j < n; j++ {
		vals[j] = optX[j] + lo[j]
	}
	return vals, -optF + offset, nil
}

// mostFractional 返回取值离整数最远的整型变量，全部在 tol 以内时返回 -1。
// tol 取 0 时返回任何带非零小数部分的变量。
func (p *Problem) mostFractional(vals []float64, tol float64) int {
	bi := -1
	worst := tol
	for j := range p.vars {
		if p.vars[j].Type == Continuous {
			continue
		}
		frac := math.Abs(vals[j] - math.Round(vals[j]))
		if frac > worst {
			worst = frac
			bi = j
		}
	}
	return bi
}

// roundCandidate 把整型变量吸附到最近的整数，并整体夹回节点边界内
func (p *Problem) roundCandidate(vals, lo, up []float64) []float64 {
	cand := make([]float64, len(vals))
	for j := range p.vars {
		v := vals[j]
		if p.vars[j].Type != Continuous {
			v = math.Round(v)
		}
		if v < lo[j] {
			v = lo[j]
		}
		if v > up[j] {
			v = up[j]
		}
		cand[j] = v
	}
	return cand
}

// integral 判断每个整型变量的取值是否都是整数
func (p *Problem) integral(vals []float64) bool {
	for j := range p.vars {
		if p.vars[j].Type == Continuous {
			continue
		}
		if math.Abs(vals[j]-math.Round(vals[j])) > intTol {
			return false
		}
	}
	return true
}

// satisfies 对照原始边界与约束复核候选解
func (p *Problem) satisfies(vals, lo, up []float64) bool {
	for j := range vals {
		if vals[j] < lo[j]-feasTol || vals[j] > up[j]+feasTol {
			return false
		}
	}
	for i := range p.cons {
		c := &p.cons[i]
		lhs := 0.0
		for j, a := range c.Coeffs {
			lhs += a * vals[j]
		}
		tol := feasTol * (1 + math.Abs(c.RHS))
		switch c.Sense {
		case LessEq:
			if lhs > c.RHS+tol {
				return false
			}
		case GreaterEq:
			if lhs < c.RHS-tol {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

// rawObjective 按调用方的目标方向计算目标值
func (p *Problem) rawObjective(vals []float64) float64 {
	obj := 0.0
	for j := range p.vars {
		obj += p.vars[j].Obj * vals[j]
	}
	return obj
}
