package domain

import (
	"errors"
	"testing"
)

func buyOrder(id, buyer, product string, maxPrice, quantity int64) BuyOrder {
	return BuyOrder{
		OrderID:        id,
		BuyerID:        buyer,
		ProductID:      product,
		MaxPriceCents:  maxPrice,
		Quantity:       quantity,
		TimeActivation: 0,
		TimeExpiry:     1000,
	}
}

func sellOrder(id, seller, product string, minPrice, quantity int64) SellOrder {
	return SellOrder{
		OrderID:        id,
		SellerID:       seller,
		ProductID:      product,
		MinPriceCents:  minPrice,
		Quantity:       quantity,
		TimeActivation: 0,
		TimeExpiry:     1000,
		ServiceRange:   50,
	}
}

func TestOrderSet_IndexAssignment(t *testing.T) {
	s := NewOrderSet()

	b1, err := s.AddBuyOrder(buyOrder("b1", "alice", "apples", 500, 10))
	if err != nil {
		t.Fatalf("AddBuyOrder failed: %v", err)
	}
	b2, err := s.AddBuyOrder(buyOrder("b2", "bob", "pears", 400, 5))
	if err != nil {
		t.Fatalf("AddBuyOrder failed: %v", err)
	}
	b3, err := s.AddBuyOrder(buyOrder("b3", "alice", "pears", 300, 2))
	if err != nil {
		t.Fatalf("AddBuyOrder failed: %v", err)
	}
	v1, err := s.AddSellOrder(sellOrder("s1", "carol", "apples", 200, 20))
	if err != nil {
		t.Fatalf("AddSellOrder failed: %v", err)
	}

	if b1.OrderIndex != 0 || b2.OrderIndex != 1 || b3.OrderIndex != 2 {
		t.Fatalf("buy order indices = %d %d %d, want 0 1 2", b1.OrderIndex, b2.OrderIndex, b3.OrderIndex)
	}
	if v1.OrderIndex != 0 {
		t.Fatalf("sell order index = %d, want 0", v1.OrderIndex)
	}

	// alice was seen first, her index must survive re-admission of the name.
	if b1.BuyerIndex != 0 || b3.BuyerIndex != 0 {
		t.Fatalf("alice's buyer index = %d then %d, want 0 both times", b1.BuyerIndex, b3.BuyerIndex)
	}
	if b2.BuyerIndex != 1 {
		t.Fatalf("bob's buyer index = %d, want 1", b2.BuyerIndex)
	}

	// Products share one namespace across both sides.
	if b1.ProductIndex != 0 || b2.ProductIndex != 1 || b3.ProductIndex != 1 {
		t.Fatalf("product indices = %d %d %d, want 0 1 1", b1.ProductIndex, b2.ProductIndex, b3.ProductIndex)
	}
	if v1.ProductIndex != 0 {
		t.Fatalf("apples sold under product index %d, want 0", v1.ProductIndex)
	}

	// Buyer and seller namespaces are independent.
	if v1.SellerIndex != 0 {
		t.Fatalf("carol's seller index = %d, want 0", v1.SellerIndex)
	}

	if s.NumBuyers() != 2 || s.NumSellers() != 1 || s.NumProducts() != 2 {
		t.Fatalf("counts = %d buyers, %d sellers, %d products; want 2 1 2",
			s.NumBuyers(), s.NumSellers(), s.NumProducts())
	}
}

func TestOrderSet_DuplicateRejection(t *testing.T) {
	s := NewOrderSet()
	if _, err := s.AddBuyOrder(buyOrder("ord-1", "alice", "apples", 500, 10)); err != nil {
		t.Fatalf("AddBuyOrder failed: %v", err)
	}

	if _, err := s.AddBuyOrder(buyOrder("ord-1", "bob", "pears", 400, 5)); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("same-side duplicate: err = %v, want ErrDuplicateOrder", err)
	}
	// The id namespace spans both sides.
	if _, err := s.AddSellOrder(sellOrder("ord-1", "carol", "apples", 200, 20)); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("cross-side duplicate: err = %v, want ErrDuplicateOrder", err)
	}

	if s.NumBuyOrders() != 1 || s.NumSellOrders() != 0 || s.NumOrders() != 1 {
		t.Fatalf("counts changed after rejected admissions: %d buy, %d sell",
			s.NumBuyOrders(), s.NumSellOrders())
	}
}

func TestOrderSet_Lookup(t *testing.T) {
	s := NewOrderSet()
	if _, err := s.AddSellOrder(sellOrder("s1", "carol", "apples", 200, 20)); err != nil {
		t.Fatalf("AddSellOrder failed: %v", err)
	}

	o, err := s.Lookup("s1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if o.ID() != "s1" || o.AgentID() != "carol" || o.Product() != "apples" || o.Units() != 20 {
		t.Fatalf("lookup returned wrong order: %+v", o)
	}

	if _, err := s.Lookup("missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestOrderSet_Validation(t *testing.T) {
	s := NewOrderSet()

	tests := []struct {
		name string
		add  func() error
	}{
		{"zero quantity", func() error {
			_, err := s.AddBuyOrder(buyOrder("v1", "a", "p", 100, 0))
			return err
		}},
		{"negative price", func() error {
			_, err := s.AddBuyOrder(buyOrder("v2", "a", "p", -1, 1))
			return err
		}},
		{"inverted window", func() error {
			o := buyOrder("v3", "a", "p", 100, 1)
			o.TimeActivation = 10
			o.TimeExpiry = 5
			_, err := s.AddBuyOrder(o)
			return err
		}},
		{"negative service range", func() error {
			o := sellOrder("v4", "a", "p", 100, 1)
			o.ServiceRange = -1
			_, err := s.AddSellOrder(o)
			return err
		}},
		{"empty id", func() error {
			_, err := s.AddSellOrder(sellOrder("", "a", "p", 100, 1))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
		})
	}

	if s.NumOrders() != 0 {
		t.Fatalf("rejected orders leaked into the set: %d", s.NumOrders())
	}
}

func TestOrderSet_AdmissionOrder(t *testing.T) {
	s := NewOrderSet()
	ids := []string{"b3", "b1", "b2"}
	for _, id := range ids {
		if _, err := s.AddBuyOrder(buyOrder(id, "alice", "apples", 100, 1)); err != nil {
			t.Fatalf("AddBuyOrder(%s) failed: %v", id, err)
		}
	}

	for i, o := range s.BuyOrders() {
		if o.OrderID != ids[i] {
			t.Fatalf("position %d holds %s, want %s", i, o.OrderID, ids[i])
		}
	}
}

func TestMidpointPriceCents(t *testing.T) {
	tests := []struct {
		maxPrice, minPrice, want int64
	}{
		{500, 300, 400},
		{0, 0, 0},
		{2, 1, 2},  // 1.5 rounds up
		{5, 0, 3},  // 2.5 rounds up
		{4, 4, 4},
		{1000, 999, 1000},
	}
	for _, tt := range tests {
		if got := MidpointPriceCents(tt.maxPrice, tt.minPrice); got != tt.want {
			t.Fatalf("MidpointPriceCents(%d, %d) = %d, want %d", tt.maxPrice, tt.minPrice, got, tt.want)
		}
	}
}
