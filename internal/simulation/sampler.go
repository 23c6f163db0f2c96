// Package simulation 合成订单批次生成器，用于压测与端到端校验
package simulation

import (
	"fmt"
	"math"
	"math/rand"
)

// ConfigurationError 生成器配置非法。构造时立即校验，绝不拖到生成阶段。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid simulation config: field %s %s", e.Field, e.Reason)
}

// DiscreteSampler 有限离散分布的逆 CDF 采样器
type DiscreteSampler[T any] struct {
	values []T
	cum    []float64
}

// NewDiscreteSampler 构造采样器。概率必须逐项非负且总和为 1（容差 1e-9）。
func NewDiscreteSampler[T any](values []T, probs []float64) (*DiscreteSampler[T], error) {
	if len(values) == 0 {
		return nil, &ConfigurationError{Field: "values", Reason: "must not be empty"}
	}
	if len(values) != len(probs) {
		return nil, &ConfigurationError{Field: "probs", Reason: "must have one probability per value"}
	}

	sum := 0.0
	cum := make([]float64, len(probs))
	for i, p := range probs {
		if p < 0 {
			return nil, &ConfigurationError{Field: "probs", Reason: "must be non-negative"}
		}
		sum += p
		cum[i] = sum
	}
	if math.Abs(sum-1) > 1e-9 {
		return nil, &ConfigurationError{Field: "probs", Reason: fmt.Sprintf("must sum to 1, got %v", sum)}
	}
	// 抵消浮点累加误差，保证最后一档总能命中
	cum[len(cum)-1] = 1

	return &DiscreteSampler[T]{
		values: append([]T(nil), values...),
		cum:    cum,
	}, nil
}

// UniformSampler 等概率分布的便捷构造
func UniformSampler[T any](values []T) (*DiscreteSampler[T], error) {
	if len(values) == 0 {
		return nil, &ConfigurationError{Field: "values", Reason: "must not be empty"}
	}
	probs := make([]float64, len(values))
	for i := range probs {
		probs[i] = 1 / float64(len(values))
	}
	return NewDiscreteSampler(values, probs)
}

// Sample 按分布抽取一个值
func (s *DiscreteSampler[T]) Sample(r *rand.Rand) T {
	u := r.Float64()
	for i, c := range s.cum {
		if u < c {
			return s.values[i]
		}
	}
	return s.values[len(s.values)-1]
}
