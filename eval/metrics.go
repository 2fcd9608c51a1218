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

package eval

import (
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tabrec-io/tabrec/engine"
)

// precision is the fraction of recommended items that are relevant.
//
//	\frac{|relevant| \cap |retrieved|} {|retrieved|}
func precision(targetSet mapset.Set[int32], rankList []int32) float32 {
	if len(rankList) == 0 {
		return 0
	}
	hit := float32(0)
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return hit / float32(len(rankList))
}

// recall is the fraction of relevant items that have been recommended.
//
//	\frac{|relevant| \cap |retrieved|} {|relevant|}
func recall(targetSet mapset.Set[int32], rankList []int32) float32 {
	hit := 0
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
		}
	}
	return float32(hit) / float32(targetSet.Cardinality())
}

// averagePrecision averages precision over the positions of hits.
func averagePrecision(targetSet mapset.Set[int32], rankList []int32) float32 {
	sumPrecision := float32(0)
	hit := 0
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			hit++
			sumPrecision += float32(hit) / float32(i+1)
		}
	}
	return sumPrecision / float32(targetSet.Cardinality())
}

// ndcg means Normalized Discounted Cumulative Gain.
func ndcg(targetSet mapset.Set[int32], rankList []int32) float32 {
	// IDCG = \sum^{|REL|}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < targetSet.Cardinality() && i < len(rankList); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	if idcg == 0 {
		return 0
	}
	// DCG = \sum^{N}_{i=1} \frac {2^{rel_i}-1} {\log_2(i+1)}
	dcg := float32(0)
	for i, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	return dcg / idcg
}

// hitRatio is 1 if any relevant item was recommended.
func hitRatio(targetSet mapset.Set[int32], rankList []int32) float32 {
	for _, itemIndex := range rankList {
		if targetSet.Contains(itemIndex) {
			return 1
		}
	}
	return 0
}

// userAUC is the probability that a relevant candidate outranks an
// irrelevant one, computed from a full ranking of the candidates.
func userAUC(eng *engine.Engine, targetSet mapset.Set[int32], userIndex int32, candidates []int32) float32 {
	fullRank := eng.RankIndexes(userIndex, candidates, len(candidates))
	numPositive := 0
	numNegative := 0
	for _, itemIndex := range fullRank {
		if targetSet.Contains(itemIndex) {
			numPositive++
		} else {
			numNegative++
		}
	}
	if numPositive == 0 || numNegative == 0 {
		return 0
	}
	// Walking from the top, each positive outranks every negative that
	// appears after it.
	sumCorrect := 0
	negativesSeen := 0
	for _, itemIndex := range fullRank {
		if targetSet.Contains(itemIndex) {
			sumCorrect += numNegative - negativesSeen
		} else {
			negativesSeen++
		}
	}
	return float32(sumCorrect) / float32(numPositive*numNegative)
}
