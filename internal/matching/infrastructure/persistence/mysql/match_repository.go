// Package mysql 提供清算结果仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/pkg/logger"
)

// ClearingRoundModel 清算轮次的数据库模型
type ClearingRoundModel struct {
	gorm.Model
	RoundID    string    `gorm:"column:round_id;type:varchar(64);uniqueIndex;not null"`
	ClearedAt  time.Time `gorm:"column:cleared_at;type:datetime;not null"`
	BuyOrders  int       `gorm:"column:buy_orders;not null"`
	SellOrders int       `gorm:"column:sell_orders;not null"`
	Objective  float64   `gorm:"column:objective;not null"`
	Optimal    bool      `gorm:"column:optimal;not null"`
	MatchCount int       `gorm:"column:match_count;not null"`
}

// TableName 指定表名
func (ClearingRoundModel) TableName() string {
	return "clearing_rounds"
}

// MatchModel 单笔成交的数据库模型
type MatchModel struct {
	gorm.Model
	RoundID    string `gorm:"column:round_id;type:varchar(64);index;not null"`
	MatchID    int    `gorm:"column:match_id;not null"`
	BuyOrder   string `gorm:"column:buy_order;type:varchar(64);index;not null"`
	SellOrder  string `gorm:"column:sell_order;type:varchar(64);index;not null"`
	Volume     int64  `gorm:"column:volume;not null"`
	PriceCents int64  `gorm:"column:price_cents;not null"`
}

// TableName 指定表名
func (MatchModel) TableName() string {
	return "matches"
}

// matchRepositoryImpl domain.MatchRepository 接口的 GORM 实现
type matchRepositoryImpl struct {
	db *gorm.DB
}

// NewMatchRepository 创建仓储实例
func NewMatchRepository(db *gorm.DB) domain.MatchRepository {
	return &matchRepositoryImpl{db: db}
}

// SaveRound 实现 domain.MatchRepository.SaveRound，轮次与成交在同一事务写入
func (r *matchRepositoryImpl) SaveRound(ctx context.Context, round *domain.ClearingRound) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roundModel := &ClearingRoundModel{
			RoundID:    round.RoundID,
			ClearedAt:  round.ClearedAt,
			BuyOrders:  round.BuyOrders,
			SellOrders: round.SellOrders,
			Objective:  round.Objective,
			Optimal:    round.Optimal,
			MatchCount: round.MatchCount,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}},
			UpdateAll: true,
		}).Create(roundModel).Error; err != nil {
			return err
		}

		if len(round.Matches) == 0 {
			return nil
		}
		models := make([]MatchModel, 0, len(round.Matches))
		for _, m := range round.Matches {
			models = append(models, MatchModel{
				RoundID:    round.RoundID,
				MatchID:    m.MatchID,
				BuyOrder:   m.BuyOrder,
				SellOrder:  m.SellOrder,
				Volume:     m.Volume,
				PriceCents: m.PriceCents,
			})
		}
		return tx.CreateInBatches(models, 100).Error
	})
	if err != nil {
		logger.Error(ctx, "match_repository.SaveRound failed", "round_id", round.RoundID, "error", err)
		return fmt.Errorf("failed to save clearing round: %w", err)
	}
	return nil
}

// GetRound 实现 domain.MatchRepository.GetRound
func (r *matchRepositoryImpl) GetRound(ctx context.Context, roundID string) (*domain.ClearingRound, error) {
	var model ClearingRoundModel
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error(ctx, "match_repository.GetRound failed", "round_id", roundID, "error", err)
		return nil, fmt.Errorf("failed to get clearing round: %w", err)
	}

	matches, err := r.ListMatches(ctx, roundID)
	if err != nil {
		return nil, err
	}

	return &domain.ClearingRound{
		RoundID:    model.RoundID,
		ClearedAt:  model.ClearedAt,
		BuyOrders:  model.BuyOrders,
		SellOrders: model.SellOrders,
		Objective:  model.Objective,
		Optimal:    model.Optimal,
		MatchCount: model.MatchCount,
		Matches:    matches,
	}, nil
}

// ListMatches 实现 domain.MatchRepository.ListMatches，按发布顺序返回
func (r *matchRepositoryImpl) ListMatches(ctx context.Context, roundID string) ([]domain.MatchRecord, error) {
	var models []MatchModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("match_id ASC").
		Find(&models).Error; err != nil {
		logger.Error(ctx, "match_repository.ListMatches failed", "round_id", roundID, "error", err)
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	records := make([]domain.MatchRecord, 0, len(models))
	for _, m := range models {
		records = append(records, domain.MatchRecord{
			MatchID:    m.MatchID,
			BuyOrder:   m.BuyOrder,
			SellOrder:  m.SellOrder,
			Volume:     m.Volume,
			PriceCents: m.PriceCents,
		})
	}
	return records, nil
}

// AutoMigrate 创建/更新表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ClearingRoundModel{}, &MatchModel{})
}
