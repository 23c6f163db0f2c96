package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/pkg/logger"
	"github.com/fieldfresh/mate/pkg/metrics"
)

// ErrRoundSealed 轮次已密封清算，迟到的订单事件被拒绝
var ErrRoundSealed = errors.New("round already sealed")

// MatchPublisher 成交与就绪公告的出站接口，由基础设施层实现
type MatchPublisher interface {
	// PublishMatchBatch 发布一个分片的成交记录
	PublishMatchBatch(ctx context.Context, roundID string, records []domain.MatchRecord) error
	// PublishReady 发布周期性就绪公告
	PublishReady(ctx context.Context, event ReadyEvent) error
}

// RoundManager 按轮次聚合订单创建事件。两侧都集齐各自声明的
// totalMessageCount 条订单后，该轮被密封并交给清算引擎；成交按固定
// 大小分片发布，整轮归档后从注册表移除。
//
// 锁分两层：注册表锁只保护轮次条目的创建与移除，持锁时间极短；
// 每轮自带一把锁保护该轮订单集合的变更，清算期间一直持有，
// 保证引擎读取的是密封后的集合。
type RoundManager struct {
	engine    domain.Engine
	publisher MatchPublisher
	repo      domain.MatchRepository // 为 nil 时关闭归档
	metrics   *metrics.Metrics       // 为 nil 时不上报指标
	batchSize int

	mu     sync.Mutex
	rounds map[string]*roundState

	readyRound atomic.Int64
}

type roundState struct {
	mu           sync.Mutex
	orders       *domain.OrderSet
	expectedBuy  int
	expectedSell int
	sealed       bool
}

// NewRoundManager 创建轮次管理器。batchSize 是成交发布的分片大小。
func NewRoundManager(engine domain.Engine, publisher MatchPublisher, repo domain.MatchRepository, m *metrics.Metrics, batchSize int) *RoundManager {
	return &RoundManager{
		engine:    engine,
		publisher: publisher,
		repo:      repo,
		metrics:   m,
		batchSize: batchSize,
		rounds:    make(map[string]*roundState),
	}
}

// HandleOrderCreated 处理一条订单创建事件。集齐整轮时同步触发清算，
// 返回的错误是准入错误或清算错误之一。
func (m *RoundManager) HandleOrderCreated(ctx context.Context, event *OrderCreatedEvent) error {
	if event.Type != EventTypeBuyOrderCreated && event.Type != EventTypeSellOrderCreated {
		return fmt.Errorf("unknown order event type %q", event.Type)
	}
	roundID := event.Message.BatchID
	if roundID == "" {
		return errors.New("order event missing batch id")
	}

	state := m.lookupOrCreate(roundID)

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.sealed {
		m.rejected()
		return ErrRoundSealed
	}

	if err := m.admit(state, event); err != nil {
		m.rejected()
		return err
	}

	if m.metrics != nil {
		side := "buy"
		if event.Type == EventTypeSellOrderCreated {
			side = "sell"
		}
		m.metrics.OrdersIngested.WithLabelValues(side).Inc()
	}

	if !roundComplete(state) {
		return nil
	}

	// 密封：本轮订单集合自此只读
	state.sealed = true
	err := m.clearRound(ctx, roundID, state.orders)
	m.remove(roundID)
	return err
}

// lookupOrCreate 短锁作用域：只负责取到或插入该轮的状态条目
func (m *RoundManager) lookupOrCreate(roundID string) *roundState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.rounds[roundID]
	if !ok {
		state = &roundState{orders: domain.NewOrderSet()}
		m.rounds[roundID] = state
		if m.metrics != nil {
			m.metrics.RoundsInFlight.Inc()
		}
	}
	return state
}

func (m *RoundManager) remove(roundID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[roundID]; ok {
		delete(m.rounds, roundID)
		if m.metrics != nil {
			m.metrics.RoundsInFlight.Dec()
		}
	}
}

func (m *RoundManager) rejected() {
	if m.metrics != nil {
		m.metrics.OrdersRejected.Inc()
	}
}

// admit 把事件载荷映射成领域订单并准入。调用方持有该轮的锁。
func (m *RoundManager) admit(state *roundState, event *OrderCreatedEvent) error {
	body := &event.Message.Message

	if event.Type == EventTypeBuyOrderCreated {
		if body.MaxPriceCents == nil {
			return fmt.Errorf("buy order %s missing maxPriceCents", body.ID)
		}
		_, err := state.orders.AddBuyOrder(domain.BuyOrder{
			OrderID:        body.ID,
			BuyerID:        body.ProxyID,
			ProductID:      body.ProductID,
			MaxPriceCents:  *body.MaxPriceCents,
			Quantity:       body.Volume,
			TimeActivation: body.EarliestDate.Seconds,
			TimeExpiry:     body.LatestDate.Seconds,
			Lat:            body.Lat,
			Long:           body.Long,
		})
		if err != nil {
			return err
		}
		state.expectedBuy = event.Message.TotalMessageCount
		return nil
	}

	if body.MinPriceCents == nil {
		return fmt.Errorf("sell order %s missing minPriceCents", body.ID)
	}
	if body.ServiceRadius == nil {
		return fmt.Errorf("sell order %s missing serviceRadius", body.ID)
	}
	_, err := state.orders.AddSellOrder(domain.SellOrder{
		OrderID:        body.ID,
		SellerID:       body.ProxyID,
		ProductID:      body.ProductID,
		MinPriceCents:  *body.MinPriceCents,
		Quantity:       body.Volume,
		TimeActivation: body.EarliestDate.Seconds,
		TimeExpiry:     body.LatestDate.Seconds,
		Lat:            body.Lat,
		Long:           body.Long,
		ServiceRange:   *body.ServiceRadius,
	})
	if err != nil {
		return err
	}
	state.expectedSell = event.Message.TotalMessageCount
	return nil
}

// roundComplete 两侧的期望数都已声明且都已集齐
func roundComplete(state *roundState) bool {
	return state.expectedBuy > 0 && state.expectedSell > 0 &&
		state.orders.NumBuyOrders() >= state.expectedBuy &&
		state.orders.NumSellOrders() >= state.expectedSell
}

// clearRound 清算一轮：求解、分片发布、归档
func (m *RoundManager) clearRound(ctx context.Context, roundID string, orders *domain.OrderSet) error {
	logger.Info(ctx, "Clearing round",
		"round_id", roundID,
		"buy_orders", orders.NumBuyOrders(),
		"sell_orders", orders.NumSellOrders(),
	)

	start := time.Now()
	result, err := domain.Clear(m.engine, orders)
	if err != nil {
		if m.metrics != nil {
			m.metrics.RoundsFailed.Inc()
		}
		logger.Error(ctx, "Round clearing failed", "round_id", roundID, "error", err)
		return err
	}
	if m.metrics != nil {
		m.metrics.SolveDuration.Observe(time.Since(start).Seconds())
		m.metrics.RoundOrders.Observe(float64(orders.NumOrders()))
	}

	records := result.Matches.Records()
	if err := m.publishMatches(ctx, roundID, records); err != nil {
		if m.metrics != nil {
			m.metrics.RoundsFailed.Inc()
		}
		return err
	}

	if m.repo != nil {
		round := &domain.ClearingRound{
			RoundID:    roundID,
			ClearedAt:  time.Now().UTC(),
			BuyOrders:  orders.NumBuyOrders(),
			SellOrders: orders.NumSellOrders(),
			Objective:  result.Objective,
			Optimal:    result.Optimal,
			MatchCount: len(records),
			Matches:    records,
		}
		if err := m.repo.SaveRound(ctx, round); err != nil {
			logger.Error(ctx, "Failed to archive round", "round_id", roundID, "error", err)
			return err
		}
	}

	if m.metrics != nil {
		m.metrics.RoundsCleared.Inc()
		m.metrics.MatchesEmitted.Add(float64(len(records)))
	}
	logger.Info(ctx, "Round cleared",
		"round_id", roundID,
		"matches", len(records),
		"objective", result.Objective,
		"optimal", result.Optimal,
		"duration", time.Since(start),
	)
	return nil
}

// publishMatches 把成交切成 batchSize 大小的分片发布，
// 末尾不足一个分片的部分单独发布
func (m *RoundManager) publishMatches(ctx context.Context, roundID string, records []domain.MatchRecord) error {
	for start := 0; start < len(records); start += m.batchSize {
		end := start + m.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := m.publisher.PublishMatchBatch(ctx, roundID, records[start:end]); err != nil {
			logger.Error(ctx, "Failed to publish match batch",
				"round_id", roundID, "offset", start, "error", err)
			return err
		}
	}
	return nil
}

// StartReadyAnnouncer 周期性发布就绪公告，ctx 取消时停止
func (m *RoundManager) StartReadyAnnouncer(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				event := ReadyEvent{
					ReadyTimeUTCSeconds: time.Now().UTC().Unix(),
					Round:               m.readyRound.Add(1),
				}
				if err := m.publisher.PublishReady(ctx, event); err != nil {
					logger.Warn(ctx, "Failed to publish ready event", "error", err)
				}
			}
		}
	}()
}

// RoundStatus 返回一轮的进度；该轮不在注册表中时第二个返回值为 false
func (m *RoundManager) RoundStatus(roundID string) (*RoundStatus, bool) {
	m.mu.Lock()
	state, ok := m.rounds[roundID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return &RoundStatus{
		RoundID:            roundID,
		BuyOrders:          state.orders.NumBuyOrders(),
		SellOrders:         state.orders.NumSellOrders(),
		ExpectedBuyOrders:  state.expectedBuy,
		ExpectedSellOrders: state.expectedSell,
		Sealed:             state.sealed,
	}, true
}

// InFlightRounds 当前累积中的轮次数
func (m *RoundManager) InFlightRounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rounds)
}

// RoundArchive 读取已归档的轮次，归档关闭时返回 nil
func (m *RoundManager) RoundArchive(ctx context.Context, roundID string) (*domain.ClearingRound, error) {
	if m.repo == nil {
		return nil, nil
	}
	return m.repo.GetRound(ctx, roundID)
}
