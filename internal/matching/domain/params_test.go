package domain

import (
	"math"
	"testing"

	"github.com/fieldfresh/mate/pkg/geo"
)

// feasiblePair returns a buy/sell pair that satisfies every pairwise
// predicate; tests flip one condition at a time.
func feasiblePair() (BuyOrder, SellOrder) {
	buy := buyOrder("b1", "alice", "apples", 500, 10)
	sell := sellOrder("s1", "carol", "apples", 300, 10)
	return buy, sell
}

func TestBuildParams_Feasibility(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*BuyOrder, *SellOrder)
		feasible bool
	}{
		{"all conditions hold", func(*BuyOrder, *SellOrder) {}, true},
		{"different product", func(b *BuyOrder, s *SellOrder) {
			s.ProductID = "pears"
		}, false},
		{"buy window ends before sell window starts", func(b *BuyOrder, s *SellOrder) {
			b.TimeActivation, b.TimeExpiry = 0, 10
			s.TimeActivation, s.TimeExpiry = 20, 30
		}, false},
		{"sell window ends before buy window starts", func(b *BuyOrder, s *SellOrder) {
			b.TimeActivation, b.TimeExpiry = 20, 30
			s.TimeActivation, s.TimeExpiry = 0, 10
		}, false},
		{"windows touch at a single instant", func(b *BuyOrder, s *SellOrder) {
			b.TimeActivation, b.TimeExpiry = 0, 10
			s.TimeActivation, s.TimeExpiry = 10, 30
		}, true},
		{"distance beyond service range", func(b *BuyOrder, s *SellOrder) {
			// One degree of latitude is ~111 km.
			b.Lat = 1
			s.ServiceRange = 50
		}, false},
		{"distance inside service range", func(b *BuyOrder, s *SellOrder) {
			b.Lat = geo.ArcDegrees(40)
			s.ServiceRange = 50
		}, true},
		{"max price below min price", func(b *BuyOrder, s *SellOrder) {
			b.MaxPriceCents = 299
		}, false},
		{"max price equals min price", func(b *BuyOrder, s *SellOrder) {
			b.MaxPriceCents = 300
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy, sell := feasiblePair()
			tt.mutate(&buy, &sell)

			s := NewOrderSet()
			if _, err := s.AddBuyOrder(buy); err != nil {
				t.Fatalf("AddBuyOrder failed: %v", err)
			}
			if _, err := s.AddSellOrder(sell); err != nil {
				t.Fatalf("AddSellOrder failed: %v", err)
			}

			p := BuildParams(s, 0)
			if p.Feasible[0][0] != tt.feasible {
				t.Fatalf("feasible = %v, want %v", p.Feasible[0][0], tt.feasible)
			}
		})
	}
}

func TestBuildParams_Cost(t *testing.T) {
	buy, sell := feasiblePair()
	buy.Lat, buy.Long = 0, 0
	sell.Lat, sell.Long = 1, 0

	s := NewOrderSet()
	if _, err := s.AddBuyOrder(buy); err != nil {
		t.Fatalf("AddBuyOrder failed: %v", err)
	}
	if _, err := s.AddSellOrder(sell); err != nil {
		t.Fatalf("AddSellOrder failed: %v", err)
	}

	const unitCost = 300.0
	p := BuildParams(s, unitCost)

	want := geo.Distance(0, 0, 1, 0) * unitCost
	if math.Abs(p.Cost[0][0]-want) > 1e-9 {
		t.Fatalf("cost = %v, want %v", p.Cost[0][0], want)
	}
}

func TestBuildParams_Shapes(t *testing.T) {
	s := NewOrderSet()
	for i, id := range []string{"b1", "b2", "b3"} {
		if _, err := s.AddBuyOrder(buyOrder(id, "alice", "apples", int64(100+i), 1)); err != nil {
			t.Fatalf("AddBuyOrder failed: %v", err)
		}
	}
	for i, id := range []string{"s1", "s2"} {
		if _, err := s.AddSellOrder(sellOrder(id, "carol", "apples", int64(50+i), int64(5+i))); err != nil {
			t.Fatalf("AddSellOrder failed: %v", err)
		}
	}

	p := BuildParams(s, 3)

	if len(p.PriceCeiling) != 3 || len(p.Demand) != 3 {
		t.Fatalf("buy-side vectors sized %d/%d, want 3/3", len(p.PriceCeiling), len(p.Demand))
	}
	if len(p.PriceFloor) != 2 || len(p.Supply) != 2 {
		t.Fatalf("sell-side vectors sized %d/%d, want 2/2", len(p.PriceFloor), len(p.Supply))
	}
	if len(p.Cost) != 3 || len(p.Cost[0]) != 2 || len(p.Feasible) != 3 || len(p.Feasible[0]) != 2 {
		t.Fatal("pairwise matrices not shaped |buy| x |sell|")
	}

	if p.PriceCeiling[2] != 102 || p.Supply[1] != 6 {
		t.Fatalf("vectors not keyed by admission index: ceiling[2]=%d supply[1]=%d",
			p.PriceCeiling[2], p.Supply[1])
	}
}
