package simulation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fieldfresh/mate/internal/matching/domain"
	"github.com/fieldfresh/mate/pkg/geo"
)

// IntRange 闭区间 [Low, High]
type IntRange struct {
	Low  int64
	High int64
}

func (r IntRange) validate(field string) error {
	if r.Low > r.High {
		return &ConfigurationError{Field: field, Reason: "low bound exceeds high bound"}
	}
	return nil
}

func (r IntRange) sample(rng *rand.Rand) int64 {
	return r.Low + rng.Int63n(r.High-r.Low+1)
}

// TestCase 一个可复现的合成批次：固定种子下生成完全相同的订单集合。
// 买卖双方围绕同一中心点散布，产品按权重抽取，价格与数量按区间均匀抽取。
type TestCase struct {
	Seed int64

	Products       []string
	ProductWeights []float64 // 为空时等概率

	NumBuyers       int
	NumSellers      int
	OrdersPerBuyer  int
	OrdersPerSeller int

	// 买方价格上限与卖方价格下限的抽样区间（整数分）。
	// 让两个区间重叠才能产生可成交的订单对。
	PriceCeiling IntRange
	PriceFloor   IntRange
	Quantity     IntRange

	// 代理位置：以 (CenterLat, CenterLong) 为中心、MaxSpreadKM 为半径散布
	CenterLat   float64
	CenterLong  float64
	MaxSpreadKM float64

	// 卖方配送半径（公里）与时间窗长度（秒）
	ServiceRadiusKM float64
	WindowSeconds   int64
}

// Validate 构造期校验，任何非法字段立即报 ConfigurationError
func (tc *TestCase) Validate() error {
	if len(tc.Products) == 0 {
		return &ConfigurationError{Field: "products", Reason: "must not be empty"}
	}
	if tc.ProductWeights != nil {
		if _, err := NewDiscreteSampler(tc.Products, tc.ProductWeights); err != nil {
			return err
		}
	}
	if tc.NumBuyers < 0 || tc.NumSellers < 0 {
		return &ConfigurationError{Field: "num_agents", Reason: "must be >= 0"}
	}
	if tc.OrdersPerBuyer < 0 || tc.OrdersPerSeller < 0 {
		return &ConfigurationError{Field: "orders_per_agent", Reason: "must be >= 0"}
	}
	for field, r := range map[string]IntRange{
		"price_ceiling": tc.PriceCeiling,
		"price_floor":   tc.PriceFloor,
		"quantity":      tc.Quantity,
	} {
		if err := r.validate(field); err != nil {
			return err
		}
	}
	if tc.PriceCeiling.Low < 0 || tc.PriceFloor.Low < 0 {
		return &ConfigurationError{Field: "price", Reason: "must be >= 0"}
	}
	if tc.Quantity.Low < 1 {
		return &ConfigurationError{Field: "quantity", Reason: "must be >= 1"}
	}
	if tc.MaxSpreadKM < 0 {
		return &ConfigurationError{Field: "max_spread_km", Reason: "must be >= 0"}
	}
	if tc.ServiceRadiusKM < 0 {
		return &ConfigurationError{Field: "service_radius_km", Reason: "must be >= 0"}
	}
	if tc.WindowSeconds < 0 {
		return &ConfigurationError{Field: "window_seconds", Reason: "must be >= 0"}
	}
	return nil
}

// Generate 生成一轮订单集合。同一 TestCase 多次调用产出相同的集合。
func (tc *TestCase) Generate() (*domain.OrderSet, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	products, err := tc.productSampler()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(tc.Seed))
	orders := domain.NewOrderSet()

	for b := 0; b < tc.NumBuyers; b++ {
		buyerID := fmt.Sprintf("buyer-%d", b)
		lat, long := tc.scatter(rng)
		for k := 0; k < tc.OrdersPerBuyer; k++ {
			_, err := orders.AddBuyOrder(domain.BuyOrder{
				OrderID:        fmt.Sprintf("buy-%d-%d", b, k),
				BuyerID:        buyerID,
				ProductID:      products.Sample(rng),
				MaxPriceCents:  tc.PriceCeiling.sample(rng),
				Quantity:       tc.Quantity.sample(rng),
				TimeActivation: 0,
				TimeExpiry:     tc.WindowSeconds,
				Lat:            lat,
				Long:           long,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	for s := 0; s < tc.NumSellers; s++ {
		sellerID := fmt.Sprintf("seller-%d", s)
		lat, long := tc.scatter(rng)
		for k := 0; k < tc.OrdersPerSeller; k++ {
			_, err := orders.AddSellOrder(domain.SellOrder{
				OrderID:        fmt.Sprintf("sell-%d-%d", s, k),
				SellerID:       sellerID,
				ProductID:      products.Sample(rng),
				MinPriceCents:  tc.PriceFloor.sample(rng),
				Quantity:       tc.Quantity.sample(rng),
				TimeActivation: 0,
				TimeExpiry:     tc.WindowSeconds,
				Lat:            lat,
				Long:           long,
				ServiceRange:   tc.ServiceRadiusKM,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return orders, nil
}

func (tc *TestCase) productSampler() (*DiscreteSampler[string], error) {
	if tc.ProductWeights != nil {
		return NewDiscreteSampler(tc.Products, tc.ProductWeights)
	}
	return UniformSampler(tc.Products)
}

// scatter 在中心点周围均匀抽一个位置：随机方向加随机距离
func (tc *TestCase) scatter(rng *rand.Rand) (lat, long float64) {
	dist := rng.Float64() * tc.MaxSpreadKM
	angle := rng.Float64() * 2 * math.Pi
	offset := geo.ArcDegrees(dist)
	return tc.CenterLat + offset*math.Sin(angle), tc.CenterLong + offset*math.Cos(angle)
}
