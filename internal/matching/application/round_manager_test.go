package application

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldfresh/mate/internal/matching/domain"
)

type fakePublisher struct {
	batches [][]domain.MatchRecord
	ready   []ReadyEvent
}

func (p *fakePublisher) PublishMatchBatch(_ context.Context, _ string, records []domain.MatchRecord) error {
	chunk := append([]domain.MatchRecord(nil), records...)
	p.batches = append(p.batches, chunk)
	return nil
}

func (p *fakePublisher) PublishReady(_ context.Context, event ReadyEvent) error {
	p.ready = append(p.ready, event)
	return nil
}

type fakeRepository struct {
	rounds map[string]*domain.ClearingRound
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rounds: make(map[string]*domain.ClearingRound)}
}

func (r *fakeRepository) SaveRound(_ context.Context, round *domain.ClearingRound) error {
	r.rounds[round.RoundID] = round
	return nil
}

func (r *fakeRepository) GetRound(_ context.Context, roundID string) (*domain.ClearingRound, error) {
	return r.rounds[roundID], nil
}

func (r *fakeRepository) ListMatches(_ context.Context, roundID string) ([]domain.MatchRecord, error) {
	round := r.rounds[roundID]
	if round == nil {
		return nil, nil
	}
	return round.Matches, nil
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func buyEvent(batchID, orderID string, total int, maxPrice, volume int64) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		Type: EventTypeBuyOrderCreated,
		Message: OrderCreatedPayload{
			TotalMessageCount: total,
			BatchID:           batchID,
			Message: OrderBody{
				ID:            orderID,
				ProxyID:       "buyer-" + orderID,
				ProductID:     "apples",
				Volume:        volume,
				LatestDate:    Timestamp{Seconds: 1000},
				MaxPriceCents: int64Ptr(maxPrice),
			},
		},
	}
}

func sellEvent(batchID, orderID string, total int, minPrice, volume int64) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		Type: EventTypeSellOrderCreated,
		Message: OrderCreatedPayload{
			TotalMessageCount: total,
			BatchID:           batchID,
			Message: OrderBody{
				ID:            orderID,
				ProxyID:       "seller-" + orderID,
				ProductID:     "apples",
				Volume:        volume,
				LatestDate:    Timestamp{Seconds: 1000},
				MinPriceCents: int64Ptr(minPrice),
				ServiceRadius: float64Ptr(50),
			},
		},
	}
}

func newTestManager(publisher *fakePublisher, repo domain.MatchRepository, batchSize int) *RoundManager {
	return NewRoundManager(domain.NewMIPEngine(0, 0), publisher, repo, nil, batchSize)
}

func TestRoundManager_CompleteRoundClearsAndPublishes(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	repo := newFakeRepository()
	m := newTestManager(publisher, repo, 10)

	events := []*OrderCreatedEvent{
		buyEvent("round-1", "b1", 1, 500, 10),
		sellEvent("round-1", "s1", 2, 300, 6),
	}
	for _, e := range events {
		if err := m.HandleOrderCreated(ctx, e); err != nil {
			t.Fatalf("HandleOrderCreated(%s) failed: %v", e.Message.Message.ID, err)
		}
	}
	// Incomplete round must not have cleared.
	if len(publisher.batches) != 0 {
		t.Fatal("round cleared before both sides completed")
	}
	if m.InFlightRounds() != 1 {
		t.Fatalf("in-flight rounds = %d, want 1", m.InFlightRounds())
	}

	if err := m.HandleOrderCreated(ctx, sellEvent("round-1", "s2", 2, 300, 6)); err != nil {
		t.Fatalf("final event failed: %v", err)
	}

	if len(publisher.batches) != 1 {
		t.Fatalf("published batches = %d, want 1", len(publisher.batches))
	}
	var total int64
	for _, record := range publisher.batches[0] {
		if record.PriceCents != 400 {
			t.Fatalf("price = %d, want 400", record.PriceCents)
		}
		total += record.Volume
	}
	if total != 10 {
		t.Fatalf("published volume = %d, want 10", total)
	}

	// Cleared rounds leave the registry and land in the archive.
	if m.InFlightRounds() != 0 {
		t.Fatalf("in-flight rounds = %d after clearing, want 0", m.InFlightRounds())
	}
	round, err := repo.GetRound(ctx, "round-1")
	if err != nil || round == nil {
		t.Fatalf("archived round missing: %v", err)
	}
	if round.BuyOrders != 1 || round.SellOrders != 2 || round.MatchCount != len(round.Matches) {
		t.Fatalf("archive = %+v", round)
	}
	if !round.Optimal {
		t.Fatal("small round must be proven optimal")
	}
}

func TestRoundManager_ChunkedPublishing(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	m := newTestManager(publisher, nil, 2)

	// Three sellers of 3 units each against a 9-unit buy: three matches.
	if err := m.HandleOrderCreated(ctx, buyEvent("round-1", "b1", 1, 500, 9)); err != nil {
		t.Fatalf("buy event failed: %v", err)
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := m.HandleOrderCreated(ctx, sellEvent("round-1", id, 3, 300, 3)); err != nil {
			t.Fatalf("sell event %s failed: %v", id, err)
		}
	}

	// Batch size 2 over 3 matches: one full chunk plus the remainder.
	if len(publisher.batches) != 2 {
		t.Fatalf("chunks = %d, want 2", len(publisher.batches))
	}
	if len(publisher.batches[0]) != 2 || len(publisher.batches[1]) != 1 {
		t.Fatalf("chunk sizes = %d, %d; want 2, 1",
			len(publisher.batches[0]), len(publisher.batches[1]))
	}
}

func TestRoundManager_RejectsMalformedEvents(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakePublisher{}, nil, 10)

	tests := []struct {
		name  string
		event *OrderCreatedEvent
	}{
		{"unknown type", &OrderCreatedEvent{Type: "orderDeleted",
			Message: OrderCreatedPayload{BatchID: "r", Message: OrderBody{ID: "x"}}}},
		{"missing batch id", buyEvent("", "b1", 1, 500, 10)},
		{"buy without max price", func() *OrderCreatedEvent {
			e := buyEvent("r", "b1", 1, 500, 10)
			e.Message.Message.MaxPriceCents = nil
			return e
		}()},
		{"sell without service radius", func() *OrderCreatedEvent {
			e := sellEvent("r", "s1", 1, 300, 10)
			e.Message.Message.ServiceRadius = nil
			return e
		}()},
		{"non-positive volume", buyEvent("r", "b2", 1, 500, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.HandleOrderCreated(ctx, tt.event); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestRoundManager_DuplicateOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakePublisher{}, nil, 10)

	if err := m.HandleOrderCreated(ctx, buyEvent("round-1", "b1", 2, 500, 10)); err != nil {
		t.Fatalf("first event failed: %v", err)
	}
	err := m.HandleOrderCreated(ctx, buyEvent("round-1", "b1", 2, 400, 5))
	if !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("err = %v, want ErrDuplicateOrder", err)
	}

	status, ok := m.RoundStatus("round-1")
	if !ok {
		t.Fatal("round missing from registry")
	}
	if status.BuyOrders != 1 {
		t.Fatalf("buy orders = %d after duplicate, want 1", status.BuyOrders)
	}
}

func TestRoundManager_IndependentRounds(t *testing.T) {
	ctx := context.Background()
	publisher := &fakePublisher{}
	m := newTestManager(publisher, nil, 10)

	// Interleave two rounds; only round-1 completes.
	if err := m.HandleOrderCreated(ctx, buyEvent("round-1", "b1", 1, 500, 10)); err != nil {
		t.Fatalf("event failed: %v", err)
	}
	if err := m.HandleOrderCreated(ctx, buyEvent("round-2", "b2", 1, 500, 10)); err != nil {
		t.Fatalf("event failed: %v", err)
	}
	if err := m.HandleOrderCreated(ctx, sellEvent("round-1", "s1", 1, 300, 10)); err != nil {
		t.Fatalf("event failed: %v", err)
	}

	if len(publisher.batches) != 1 {
		t.Fatalf("batches = %d, want 1 (only round-1 complete)", len(publisher.batches))
	}
	if m.InFlightRounds() != 1 {
		t.Fatalf("in-flight rounds = %d, want 1", m.InFlightRounds())
	}
	if _, ok := m.RoundStatus("round-2"); !ok {
		t.Fatal("round-2 should still be accumulating")
	}
}
