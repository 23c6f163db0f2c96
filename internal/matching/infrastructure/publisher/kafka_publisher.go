// Package publisher 成交与就绪公告的 Kafka 出站实现
package publisher

import (
	"context"

	"github.com/fieldfresh/mate/internal/matching/application"
	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/pkg/mq"
)

// MatchBatchEvent 成交分片的外发信封
type MatchBatchEvent struct {
	Type    string               `json:"type"`
	RoundID string               `json:"roundId"`
	Matches []domain.MatchRecord `json:"matches"`
}

// EventTypeMatchBatch 成交分片事件类型
const EventTypeMatchBatch = "matchBatch"

// KafkaMatchPublisher application.MatchPublisher 的 Kafka 实现
type KafkaMatchPublisher struct {
	producer   *mq.KafkaProducer
	matchTopic string
	readyTopic string
}

// NewKafkaMatchPublisher 创建发布器
func NewKafkaMatchPublisher(producer *mq.KafkaProducer, matchTopic, readyTopic string) *KafkaMatchPublisher {
	return &KafkaMatchPublisher{
		producer:   producer,
		matchTopic: matchTopic,
		readyTopic: readyTopic,
	}
}

// PublishMatchBatch 按轮次 ID 作为分区键发布一个成交分片，
// 保证同一轮的分片落在同一分区且保持顺序
func (p *KafkaMatchPublisher) PublishMatchBatch(ctx context.Context, roundID string, records []domain.MatchRecord) error {
	event := MatchBatchEvent{
		Type:    EventTypeMatchBatch,
		RoundID: roundID,
		Matches: records,
	}
	return p.producer.SendMessage(ctx, p.matchTopic, roundID, event)
}

// PublishReady 发布就绪公告
func (p *KafkaMatchPublisher) PublishReady(ctx context.Context, event application.ReadyEvent) error {
	return p.producer.SendMessage(ctx, p.readyTopic, "ready", event)
}
