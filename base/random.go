// Copyright 2025 tabrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"math/rand"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// RandomGenerator is the seeded random generator for tabrec.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// SampleInt32 samples n values between low and high, but not in exclude.
// When fewer than n values remain outside exclude, the remainder is
// enumerated in order instead of drawn.
func (rng RandomGenerator) SampleInt32(low, high int32, n int, exclude ...mapset.Set[int32]) []int32 {
	intervalLength := high - low
	excludeSet := mapset.NewSet[int32]()
	for _, set := range exclude {
		excludeSet = excludeSet.Union(set)
	}
	sampled := make([]int32, 0, n)
	if n >= int(intervalLength)-excludeSet.Cardinality() {
		for i := low; i < high; i++ {
			if !excludeSet.Contains(i) {
				sampled = append(sampled, i)
				excludeSet.Add(i)
			}
		}
	} else {
		for len(sampled) < n {
			v := rng.Int31n(intervalLength) + low
			if !excludeSet.Contains(v) {
				sampled = append(sampled, v)
				excludeSet.Add(v)
			}
		}
	}
	return sampled
}

// WeightedSampler draws int32 values under a fixed discrete distribution
// using a cumulative weight table and binary search.
type WeightedSampler struct {
	cumulative []float64
}

// NewWeightedSampler creates a WeightedSampler from non-negative weights.
// Zero-weight entries are never drawn unless all weights are zero, in which
// case the distribution degenerates to uniform.
func NewWeightedSampler(weights []float32) *WeightedSampler {
	cumulative := make([]float64, len(weights))
	sum := float64(0)
	for i, w := range weights {
		sum += float64(w)
		cumulative[i] = sum
	}
	if sum == 0 {
		for i := range cumulative {
			cumulative[i] = float64(i + 1)
		}
	}
	return &WeightedSampler{cumulative: cumulative}
}

// Draw returns a random index distributed by the sampler's weights.
func (s *WeightedSampler) Draw(rng RandomGenerator) int32 {
	total := s.cumulative[len(s.cumulative)-1]
	u := rng.Float64() * total
	return int32(sort.SearchFloat64s(s.cumulative, u))
}
