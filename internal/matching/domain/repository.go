package domain

import (
	"context"
	"time"
)

// ClearingRound 一轮清算的归档快照，发布后写入仓储供审计与查询
type ClearingRound struct {
	RoundID     string
	ClearedAt   time.Time
	BuyOrders   int
	SellOrders  int
	Objective   float64
	Optimal     bool
	MatchCount  int
	Matches     []MatchRecord
}

// MatchRepository 清算结果仓储接口，由基础设施层实现
type MatchRepository interface {
	// SaveRound 持久化一轮清算及其全部成交
	SaveRound(ctx context.Context, round *ClearingRound) error
	// GetRound 按轮次 ID 读取归档，未找到返回 nil
	GetRound(ctx context.Context, roundID string) (*ClearingRound, error)
	// ListMatches 按轮次 ID 读取成交记录，发布顺序返回
	ListMatches(ctx context.Context, roundID string) ([]MatchRecord, error)
}
