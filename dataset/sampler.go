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

package dataset

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
	"github.com/tabrec-io/tabrec/base/log"
	"go.uber.org/zap"
)

// Distribution selects how negative items are drawn.
type Distribution int

const (
	// Uniform draws items with equal probability.
	Uniform Distribution = iota
	// Popularity draws items weighted by their training interaction count.
	Popularity
)

// maxTrials bounds rejection sampling per negative. A user whose positives
// cover nearly the whole item space would otherwise loop unboundedly; past
// the bound the remaining item space is enumerated instead, and only a user
// covering every item gets a colliding draw.
const maxTrials = 64

// SampleStats reports what the sampler produced.
type SampleStats struct {
	// Sampled is the number of synthesized negative records.
	Sampled int
	// Fallbacks counts negatives that collide with a positive item of their
	// user. This happens only when the user's positives cover the entire
	// item space.
	Fallbacks int
}

// SampleNegatives synthesizes numPerPositive negative records for every
// positive record of the set. Negatives share the user and the
// interaction-level features of their positive record, carry label zero and
// an item drawn from the registered item space that is not positively
// associated with the user in this set. Records whose user or item did not
// resolve against the registry anchor no negatives. The registry is never
// mutated. The result is a new record set with negatives interleaved after
// their positives; the input set is left untouched.
func SampleNegatives(set *Dataset, numPerPositive int, dist Distribution, seed int64) (*Dataset, SampleStats, error) {
	info := set.Info()
	numItems := int32(info.CountItems())
	if numItems == 0 {
		return nil, SampleStats{}, errors.Errorf("cannot sample negatives from an empty item space")
	}
	if numPerPositive <= 0 {
		return set, SampleStats{}, nil
	}
	rng := base.NewRandomGenerator(seed)
	var popularity *base.WeightedSampler
	if dist == Popularity {
		weights := make([]float32, numItems)
		for i := int32(0); i < numItems; i++ {
			weights[i] = float32(info.ItemIndex.Count(i))
		}
		popularity = base.NewWeightedSampler(weights)
	}
	// positive item sets per user
	positives := make(map[int32]mapset.Set[int32])
	for i := 0; i < set.Count(); i++ {
		if userIndex, itemIndex := set.GetIndex(i); userIndex != base.NotId && itemIndex != base.NotId && !set.IsNegative(i) {
			if _, exist := positives[userIndex]; !exist {
				positives[userIndex] = mapset.NewThreadUnsafeSet[int32]()
			}
			positives[userIndex].Add(itemIndex)
		}
	}
	augmented := &Dataset{info: info, userFeedback: set.userFeedback}
	var stats SampleStats
	for i := 0; i < set.Count(); i++ {
		copyRecord(augmented, set, i)
		userIndex, itemIndex := set.GetIndex(i)
		if set.IsNegative(i) || userIndex == base.NotId || itemIndex == base.NotId {
			continue
		}
		seen := positives[userIndex]
		for k := 0; k < numPerPositive; k++ {
			var candidate int32
			accepted := false
			for trial := 0; trial < maxTrials; trial++ {
				if popularity != nil {
					candidate = popularity.Draw(rng)
				} else {
					candidate = rng.Int31n(numItems)
				}
				if !seen.Contains(candidate) {
					accepted = true
					break
				}
			}
			if !accepted {
				// the bound is exhausted; enumerate what is left of the
				// item space before accepting a collision
				if remaining := rng.SampleInt32(0, numItems, 1, seen); len(remaining) > 0 {
					candidate = remaining[0]
				} else {
					stats.Fallbacks++
				}
			}
			appendNegative(augmented, set, i, userIndex, candidate)
			stats.Sampled++
		}
	}
	log.Logger().Info("sampled negatives",
		zap.Int("num_positives", set.PositiveCount()),
		zap.Int("num_negatives", stats.Sampled),
		zap.Int("num_fallbacks", stats.Fallbacks))
	return augmented, stats, nil
}

// copyRecord appends the i-th record of src to dst unchanged.
func copyRecord(dst, src *Dataset, i int) {
	dst.users = append(dst.users, src.users[i])
	dst.items = append(dst.items, src.items[i])
	dst.labels = append(dst.labels, src.labels[i])
	if src.ctxLocals != nil {
		dst.ctxLocals = append(dst.ctxLocals, src.ctxLocals[i])
	}
	if src.ctxRaw != nil {
		dst.ctxRaw = append(dst.ctxRaw, src.ctxRaw[i])
	}
	dst.negatives = append(dst.negatives, src.IsNegative(i))
	if src.IsNegative(i) {
		dst.negativeCount++
	} else {
		dst.positiveCount++
	}
}

// appendNegative appends a synthesized negative copying the interaction
// features of the i-th positive record.
func appendNegative(dst, src *Dataset, i int, userIndex, itemIndex int32) {
	dst.users = append(dst.users, userIndex)
	dst.items = append(dst.items, itemIndex)
	dst.labels = append(dst.labels, 0)
	if src.ctxLocals != nil {
		dst.ctxLocals = append(dst.ctxLocals, src.ctxLocals[i])
	}
	if src.ctxRaw != nil {
		dst.ctxRaw = append(dst.ctxRaw, src.ctxRaw[i])
	}
	dst.negatives = append(dst.negatives, true)
	dst.negativeCount++
}
