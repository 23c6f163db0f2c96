package consumer

import (
	"context"
	"errors"

	"github.com/fieldfresh/mate/pkg/logger"
	"github.com/fieldfresh/mate/pkg/mq"
)

// Handler 单条消息的处理接口
type Handler interface {
	Handle(ctx context.Context, msg *mq.Message) error
}

// Run 驱动消费循环直到 ctx 取消。处理器返回的错误会被记录，
// 循环继续消费下一条；只有 ctx 取消能结束循环。
func Run(ctx context.Context, c *mq.KafkaConsumer, handler Handler) error {
	for {
		msg, err := c.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				logger.Info(ctx, "Consumer loop stopped")
				return nil
			}
			logger.Error(ctx, "Failed to read Kafka message", "error", err)
			continue
		}

		if err := handler.Handle(ctx, msg); err != nil {
			logger.Error(ctx, "Message handling failed",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}
