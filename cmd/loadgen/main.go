// loadgen 生成一个合成订单批次并以订单创建事件的形式发布到 Kafka，
// 用于压测清算服务；--dry-run 时只打印事件不发布。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/fieldfresh/mate/internal/matching/application"
	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/internal/simulation"
	"github.com/fieldfresh/mate/pkg/logger"
	"github.com/fieldfresh/mate/pkg/mq"
)

func main() {
	app := &cli.App{
		Name:  "loadgen",
		Usage: "generate a synthetic order batch and publish it as order-created events",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "brokers", Value: cli.NewStringSlice("localhost:9092"), Usage: "kafka broker addresses"},
			&cli.StringFlag{Name: "topic", Value: "mate.order.created", Usage: "order event topic"},
			&cli.StringFlag{Name: "batch-id", Value: "", Usage: "round id (defaults to a fresh uuid)"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed, same seed reproduces the batch"},
			&cli.IntFlag{Name: "buyers", Value: 5, Usage: "number of buyers"},
			&cli.IntFlag{Name: "sellers", Value: 5, Usage: "number of sellers"},
			&cli.IntFlag{Name: "orders-per-buyer", Value: 2, Usage: "buy orders per buyer"},
			&cli.IntFlag{Name: "orders-per-seller", Value: 2, Usage: "sell orders per seller"},
			&cli.StringSliceFlag{Name: "products", Value: cli.NewStringSlice("apples", "pears", "plums"), Usage: "product ids"},
			&cli.Int64Flag{Name: "ceiling-low", Value: 300, Usage: "buy price ceiling lower bound (cents)"},
			&cli.Int64Flag{Name: "ceiling-high", Value: 600, Usage: "buy price ceiling upper bound (cents)"},
			&cli.Int64Flag{Name: "floor-low", Value: 100, Usage: "sell price floor lower bound (cents)"},
			&cli.Int64Flag{Name: "floor-high", Value: 400, Usage: "sell price floor upper bound (cents)"},
			&cli.Int64Flag{Name: "quantity-low", Value: 1, Usage: "order quantity lower bound"},
			&cli.Int64Flag{Name: "quantity-high", Value: 10, Usage: "order quantity upper bound"},
			&cli.Float64Flag{Name: "spread-km", Value: 25, Usage: "agent scatter radius around the center (km)"},
			&cli.Float64Flag{Name: "service-radius-km", Value: 50, Usage: "seller delivery radius (km)"},
			&cli.Float64Flag{Name: "center-lat", Value: 43.6532, Usage: "scatter center latitude"},
			&cli.Float64Flag{Name: "center-long", Value: -79.3832, Usage: "scatter center longitude"},
			&cli.Int64Flag{Name: "window-seconds", Value: 7 * 24 * 3600, Usage: "order time window length (seconds)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "print events instead of publishing"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx := context.Background()

	tc := simulation.TestCase{
		Seed:            c.Int64("seed"),
		Products:        c.StringSlice("products"),
		NumBuyers:       c.Int("buyers"),
		NumSellers:      c.Int("sellers"),
		OrdersPerBuyer:  c.Int("orders-per-buyer"),
		OrdersPerSeller: c.Int("orders-per-seller"),
		PriceCeiling:    simulation.IntRange{Low: c.Int64("ceiling-low"), High: c.Int64("ceiling-high")},
		PriceFloor:      simulation.IntRange{Low: c.Int64("floor-low"), High: c.Int64("floor-high")},
		Quantity:        simulation.IntRange{Low: c.Int64("quantity-low"), High: c.Int64("quantity-high")},
		CenterLat:       c.Float64("center-lat"),
		CenterLong:      c.Float64("center-long"),
		MaxSpreadKM:     c.Float64("spread-km"),
		ServiceRadiusKM: c.Float64("service-radius-km"),
		WindowSeconds:   c.Int64("window-seconds"),
	}

	orders, err := tc.Generate()
	if err != nil {
		return err
	}

	batchID := c.String("batch-id")
	if batchID == "" {
		batchID = uuid.New().String()
	}
	events := buildEvents(batchID, orders)

	if c.Bool("dry-run") {
		encoder := json.NewEncoder(os.Stdout)
		for _, e := range events {
			if err := encoder.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:    c.StringSlice("brokers"),
		MaxRetries: 3,
	})
	if err != nil {
		return err
	}
	defer producer.Close()

	topic := c.String("topic")
	for _, e := range events {
		if err := producer.SendMessage(ctx, topic, batchID, e); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Batch published",
		"batch_id", batchID,
		"topic", topic,
		"buy_orders", orders.NumBuyOrders(),
		"sell_orders", orders.NumSellOrders(),
	)
	return nil
}

// buildEvents 把订单集合包装成订单创建事件，两侧各自携带本侧总数
func buildEvents(batchID string, orders *domain.OrderSet) []*application.OrderCreatedEvent {
	events := make([]*application.OrderCreatedEvent, 0, orders.NumOrders())

	buyTotal := orders.NumBuyOrders()
	for _, o := range orders.BuyOrders() {
		maxPrice := o.MaxPriceCents
		events = append(events, &application.OrderCreatedEvent{
			Type: application.EventTypeBuyOrderCreated,
			Message: application.OrderCreatedPayload{
				TotalMessageCount: buyTotal,
				BatchID:           batchID,
				Message: application.OrderBody{
					ID:            o.OrderID,
					ProxyID:       o.BuyerID,
					ProductID:     o.ProductID,
					Volume:        o.Quantity,
					EarliestDate:  application.Timestamp{Seconds: o.TimeActivation},
					LatestDate:    application.Timestamp{Seconds: o.TimeExpiry},
					Lat:           o.Lat,
					Long:          o.Long,
					MaxPriceCents: &maxPrice,
				},
			},
		})
	}

	sellTotal := orders.NumSellOrders()
	for _, o := range orders.SellOrders() {
		minPrice := o.MinPriceCents
		radius := o.ServiceRange
		events = append(events, &application.OrderCreatedEvent{
			Type: application.EventTypeSellOrderCreated,
			Message: application.OrderCreatedPayload{
				TotalMessageCount: sellTotal,
				BatchID:           batchID,
				Message: application.OrderBody{
					ID:            o.OrderID,
					ProxyID:       o.SellerID,
					ProductID:     o.ProductID,
					Volume:        o.Quantity,
					EarliestDate:  application.Timestamp{Seconds: o.TimeActivation},
					LatestDate:    application.Timestamp{Seconds: o.TimeExpiry},
					Lat:           o.Lat,
					Long:          o.Long,
					MinPriceCents: &minPrice,
					ServiceRadius: &radius,
				},
			},
		})
	}

	return events
}
