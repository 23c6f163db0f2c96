// Package metrics 提供 Prometheus helper，包含清算服务的业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldfresh/mate/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// 已接收的订单事件数
	OrdersIngested *prometheus.CounterVec
	// 被拒绝的订单事件数（重复、非法）
	OrdersRejected prometheus.Counter
	// 已清算的轮次数
	RoundsCleared prometheus.Counter
	// 清算失败的轮次数
	RoundsFailed prometheus.Counter
	// 进行中的轮次数
	RoundsInFlight prometheus.Gauge
	// 产生的匹配数
	MatchesEmitted prometheus.Counter
	// 求解耗时
	SolveDuration prometheus.Histogram
	// 每轮订单数
	RoundOrders prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		OrdersIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "orders_ingested_total",
			Help:      "Total order events admitted into a round",
		}, []string{"side"}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "orders_rejected_total",
			Help:      "Total order events rejected (duplicate or invalid)",
		}),
		RoundsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "rounds_cleared_total",
			Help:      "Total clearing rounds completed",
		}),
		RoundsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "rounds_failed_total",
			Help:      "Total clearing rounds aborted by an error",
		}),
		RoundsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "rounds_in_flight",
			Help:      "Rounds currently accumulating orders",
		}),
		MatchesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "matches_emitted_total",
			Help:      "Total matches produced across rounds",
		}),
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "solve_duration_seconds",
			Help:      "Clearing model solve duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		RoundOrders: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mate",
			Subsystem: serviceName,
			Name:      "round_orders",
			Help:      "Orders per cleared round",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000},
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.OrdersIngested,
		m.OrdersRejected,
		m.RoundsCleared,
		m.RoundsFailed,
		m.RoundsInFlight,
		m.MatchesEmitted,
		m.SolveDuration,
		m.RoundOrders,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
