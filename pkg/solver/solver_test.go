package solver

import (
	"errors"
	"math"
	"testing"
)

func TestSolve_ContinuousLP(t *testing.T) {
	// max 3x + 2y s.t. x+y <= 4, x <= 2
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Continuous, Lower: 0, Upper: 2, Obj: 3})
	y := p.AddVar(Variable{Name: "y", Type: Continuous, Lower: 0, Upper: math.Inf(1), Obj: 2})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, y: 1}, Sense: LessEq, RHS: 4})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Optimal {
		t.Fatal("expected an optimal solution")
	}
	if math.Abs(sol.Objective-10) > 1e-6 {
		t.Fatalf("objective = %v, want 10", sol.Objective)
	}
	if math.Abs(sol.Values[x]-2) > 1e-6 || math.Abs(sol.Values[y]-2) > 1e-6 {
		t.Fatalf("values = %v, want [2 2]", sol.Values)
	}
}

func TestSolve_IntegerKnapsack(t *testing.T) {
	// max 8a + 5b s.t. 6a + 5b <= 10, a,b integer.
	// The relaxation puts a = 10/6; the integer optimum is a=0, b=2.
	p := NewProblem(true)
	a := p.AddVar(Variable{Name: "a", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 8})
	b := p.AddVar(Variable{Name: "b", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 5})
	p.AddCons(Constraint{Coeffs: map[int]float64{a: 6, b: 5}, Sense: LessEq, RHS: 10})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Optimal {
		t.Fatal("expected an optimal solution")
	}
	if math.Abs(sol.Objective-10) > 1e-6 {
		t.Fatalf("objective = %v, want 10", sol.Objective)
	}
	if math.Abs(sol.Values[a]) > 1e-6 || math.Abs(sol.Values[b]-2) > 1e-6 {
		t.Fatalf("values = %v, want [0 2]", sol.Values)
	}
}

func TestSolve_FixedCharge(t *testing.T) {
	// max 5x - 3w s.t. x <= 10w, x <= 4, x integer, w binary.
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 5})
	w := p.AddVar(Variable{Name: "w", Type: Binary, Obj: -3})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, w: -10}, Sense: LessEq, RHS: 0})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1}, Sense: LessEq, RHS: 4})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if math.Abs(sol.Objective-17) > 1e-6 {
		t.Fatalf("objective = %v, want 17", sol.Objective)
	}
	if math.Abs(sol.Values[x]-4) > 1e-6 || math.Abs(sol.Values[w]-1) > 1e-6 {
		t.Fatalf("values = %v, want [4 1]", sol.Values)
	}
}

func TestSolve_BigMIndicator(t *testing.T) {
	// A single buyer/seller pair in miniature: flow x, activation w,
	// all-or-nothing y. max 400x - 100w with x <= 1e7 w, x <= 10, x = 10y.
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 400})
	w := p.AddVar(Variable{Name: "w", Type: Binary, Obj: -100})
	y := p.AddVar(Variable{Name: "y", Type: Binary, Obj: 0})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, w: -1e7}, Sense: LessEq, RHS: 0})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1}, Sense: LessEq, RHS: 10})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, y: -10}, Sense: Equal, RHS: 0})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if math.Abs(sol.Objective-3900) > 1e-6 {
		t.Fatalf("objective = %v, want 3900", sol.Objective)
	}
	if math.Abs(sol.Values[x]-10) > 1e-6 {
		t.Fatalf("flow = %v, want 10", sol.Values[x])
	}
	if math.Abs(sol.Values[w]-1) > 1e-6 || math.Abs(sol.Values[y]-1) > 1e-6 {
		t.Fatalf("indicators = [%v %v], want [1 1]", sol.Values[w], sol.Values[y])
	}
}

func TestSolve_UnprofitablePairStaysAtZero(t *testing.T) {
	// Activation cost exceeds the trade value, so the best solution is to
	// trade nothing. The zero corner must win cleanly.
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 5})
	w := p.AddVar(Variable{Name: "w", Type: Binary, Obj: -100})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, w: -1e7}, Sense: LessEq, RHS: 0})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1}, Sense: LessEq, RHS: 3})
	// Trading must cover the activation cost.
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 5, w: -100}, Sense: GreaterEq, RHS: 0})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if math.Abs(sol.Objective) > 1e-6 {
		t.Fatalf("objective = %v, want 0", sol.Objective)
	}
	for i, v := range sol.Values {
		if math.Abs(v) > 1e-6 {
			t.Fatalf("value[%d] = %v, want 0", i, v)
		}
	}
}

func TestSolve_Minimize(t *testing.T) {
	// min 2x + 3y s.t. x + y >= 3, integers.
	p := NewProblem(false)
	x := p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 2})
	y := p.AddVar(Variable{Name: "y", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 3})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1, y: 1}, Sense: GreaterEq, RHS: 3})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if math.Abs(sol.Objective-6) > 1e-6 {
		t.Fatalf("objective = %v, want 6", sol.Objective)
	}
	if math.Abs(sol.Values[x]-3) > 1e-6 {
		t.Fatalf("x = %v, want 3", sol.Values[x])
	}
}

func TestSolve_Infeasible(t *testing.T) {
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Continuous, Lower: 0, Upper: 1, Obj: 1})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1}, Sense: GreaterEq, RHS: 2})

	_, err := p.Solve(Options{})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}
}

func TestSolve_Unbounded(t *testing.T) {
	p := NewProblem(true)
	p.AddVar(Variable{Name: "x", Type: Continuous, Lower: 0, Upper: math.Inf(1), Obj: 1})

	_, err := p.Solve(Options{})
	if !errors.Is(err, ErrUnbounded) {
		t.Fatalf("err = %v, want ErrUnbounded", err)
	}
}

func TestSolve_EmptyProblem(t *testing.T) {
	sol, err := NewProblem(true).Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Optimal || sol.Objective != 0 {
		t.Fatalf("solution = %+v, want optimal zero", sol)
	}
}

func TestSolve_NodeBudgetReturnsIncumbent(t *testing.T) {
	// With a single node the fractional root cannot be resolved; the seed
	// incumbent (all variables at their lower bounds) must come back with
	// Optimal=false.
	p := NewProblem(true)
	a := p.AddVar(Variable{Name: "a", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 8})
	b := p.AddVar(Variable{Name: "b", Type: Integer, Lower: 0, Upper: math.Inf(1), Obj: 5})
	p.AddCons(Constraint{Coeffs: map[int]float64{a: 6, b: 5}, Sense: LessEq, RHS: 10})

	sol, err := p.Solve(Options{MaxNodes: 1})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if sol.Optimal {
		t.Fatal("budget-limited solve must not claim optimality")
	}
	if sol.Values[a] != 0 || sol.Values[b] != 0 {
		t.Fatalf("values = %v, want the zero incumbent", sol.Values)
	}
}

func TestSolve_BatchClearingStructure(t *testing.T) {
	// Two buyers and two sellers wired exactly like one clearing round:
	// integer flows bounded per pair by min(demand, supply), activation
	// binaries carrying the transaction cost on indicator rows, an
	// all-or-nothing binary on each equality demand row, and a redundant
	// per-pair cap row. Coefficients sit at production magnitudes
	// (prices in thousands of cents, costs up to tens of thousands).
	// The far pair (buyer 0, seller 1) cannot cover its cost, forcing
	// buyer 0 onto seller 0 and buyer 1 to split across both sellers.
	demand := []float64{10, 8}
	supply := []float64{12, 6}
	price := [2][2]float64{{4500, 4400}, {5000, 5100}}
	cost := [2][2]float64{{3000, 60000}, {1500, 6000}}

	p := NewProblem(true)
	var x, w [2][2]int
	var y [2]int
	for u := 0; u < 2; u++ {
		for v := 0; v < 2; v++ {
			bound := math.Min(demand[u], supply[v])
			x[u][v] = p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: bound, Obj: price[u][v]})
			w[u][v] = p.AddVar(Variable{Name: "w", Type: Binary, Obj: -cost[u][v]})
		}
		y[u] = p.AddVar(Variable{Name: "y", Type: Binary})
	}
	for v := 0; v < 2; v++ {
		p.AddCons(Constraint{Coeffs: map[int]float64{x[0][v]: 1, x[1][v]: 1}, Sense: LessEq, RHS: supply[v]})
	}
	for u := 0; u < 2; u++ {
		p.AddCons(Constraint{Coeffs: map[int]float64{x[u][0]: 1, x[u][1]: 1, y[u]: -demand[u]}, Sense: Equal, RHS: 0})
	}
	for u := 0; u < 2; u++ {
		for v := 0; v < 2; v++ {
			bound := math.Min(demand[u], supply[v])
			p.AddCons(Constraint{Coeffs: map[int]float64{x[u][v]: 1, w[u][v]: -bound}, Sense: LessEq, RHS: 0})
			p.AddCons(Constraint{Coeffs: map[int]float64{x[u][v]: price[u][v], w[u][v]: -cost[u][v]}, Sense: GreaterEq, RHS: 0})
			p.AddCons(Constraint{Coeffs: map[int]float64{x[u][v]: 1}, Sense: LessEq, RHS: bound})
		}
	}

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !sol.Optimal {
		t.Fatal("expected an optimal solution")
	}
	// 4500*10 - 3000 + 5000*2 - 1500 + 5100*6 - 6000.
	if math.Abs(sol.Objective-75100) > 1e-6 {
		t.Fatalf("objective = %v, want 75100", sol.Objective)
	}
	wantFlow := [2][2]float64{{10, 0}, {2, 6}}
	for u := 0; u < 2; u++ {
		for v := 0; v < 2; v++ {
			if got := sol.Values[x[u][v]]; math.Abs(got-wantFlow[u][v]) > 1e-6 {
				t.Fatalf("flow[%d][%d] = %v, want %v", u, v, got, wantFlow[u][v])
			}
		}
	}
	if math.Abs(sol.Values[y[0]]-1) > 1e-6 || math.Abs(sol.Values[y[1]]-1) > 1e-6 {
		t.Fatalf("all-or-nothing indicators = [%v %v], want both 1",
			sol.Values[y[0]], sol.Values[y[1]])
	}
}

func TestSolve_TighterBoundWins(t *testing.T) {
	// Variable upper bound narrower than any constraint.
	p := NewProblem(true)
	x := p.AddVar(Variable{Name: "x", Type: Integer, Lower: 0, Upper: 7, Obj: 1})
	p.AddCons(Constraint{Coeffs: map[int]float64{x: 1}, Sense: LessEq, RHS: 100})

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if math.Abs(sol.Objective-7) > 1e-6 {
		t.Fatalf("objective = %v, want 7", sol.Objective)
	}
}
