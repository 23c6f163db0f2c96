// Package consumer 消费订单创建事件并投喂轮次管理器
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fieldfresh/mate/internal/matching/application"
	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/pkg/logger"
	"github.com/fieldfresh/mate/pkg/mq"
)

// OrderCreatedHandler 订单创建事件的 Kafka 处理器。解码失败或业务上可跳过
// 的事件（重复订单、迟到事件）写入死信队列后继续消费，清算错误则上抛由
// 消费循环决定是否停止。
type OrderCreatedHandler struct {
	manager *application.RoundManager
	dlq     *mq.DeadLetterQueue // 为 nil 时直接丢弃坏消息
}

// NewOrderCreatedHandler 创建处理器
func NewOrderCreatedHandler(manager *application.RoundManager, dlq *mq.DeadLetterQueue) *OrderCreatedHandler {
	return &OrderCreatedHandler{manager: manager, dlq: dlq}
}

// Handle 处理一条订单创建消息
func (h *OrderCreatedHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event application.OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Error(ctx, "Failed to unmarshal order event",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		return h.park(ctx, msg, "unmarshal failed", err)
	}

	err := h.manager.HandleOrderCreated(ctx, &event)
	if err == nil {
		return nil
	}

	// 重复与迟到的订单事件可安全跳过；其余错误（清算失败等）必须上抛
	if errors.Is(err, domain.ErrDuplicateOrder) || errors.Is(err, application.ErrRoundSealed) {
		logger.Warn(ctx, "Skipping order event",
			"order_id", event.Message.Message.ID,
			"round_id", event.Message.BatchID,
			"reason", err,
		)
		return h.park(ctx, msg, "order event skipped", err)
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		logger.Warn(ctx, "Rejecting invalid order event",
			"order_id", verr.OrderID, "field", verr.Field, "reason", verr.Reason)
		return h.park(ctx, msg, "order validation failed", err)
	}

	return err
}

func (h *OrderCreatedHandler) park(ctx context.Context, msg *mq.Message, reason string, cause error) error {
	if h.dlq == nil {
		return nil
	}
	if err := h.dlq.Send(ctx, msg, reason, cause); err != nil {
		logger.Error(ctx, "Failed to park message in dead letter queue", "error", err)
		return err
	}
	return nil
}
