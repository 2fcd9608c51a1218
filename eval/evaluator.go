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

// Package eval computes rating and ranking metrics over held-out record sets
// through the recommendation engine, so cold rows follow the same cold-start
// policy as production queries.
package eval

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/tabrec-io/tabrec/dataset"
	"github.com/tabrec-io/tabrec/engine"
)

// ErrIncompatibleMetric reports a metric requested for the wrong task.
var ErrIncompatibleMetric = errors.New("incompatible metric")

// Task distinguishes explicit rating data from implicit ranking data.
type Task int

const (
	// RatingTask evaluates error metrics on explicit labels.
	RatingTask Task = iota
	// RankingTask evaluates Top-K retrieval metrics on implicit feedback.
	RankingTask
)

// Metric names.
const (
	RMSE      = "rmse"
	MAE       = "mae"
	R2        = "r2"
	Precision = "precision"
	Recall    = "recall"
	MAP       = "map"
	NDCG      = "ndcg"
	HR        = "hr"
	AUC       = "roc_auc"
)

var ratingMetrics = []string{RMSE, MAE, R2}
var rankingMetrics = []string{Precision, Recall, MAP, NDCG, HR, AUC}

// Options tune an evaluation run.
type Options struct {
	Task Task
	// TopK is the cutoff of ranking metrics.
	TopK int
	// Policy resolves cold rows of the record set.
	Policy engine.ColdStartPolicy
}

// Evaluate computes the named metrics for a record set. The train set
// supplies consumed-item exclusion during ranking; it may be nil. Requesting
// a metric incompatible with the task fails with ErrIncompatibleMetric.
func Evaluate(eng *engine.Engine, testSet, trainSet *dataset.Dataset, opts Options, metrics ...string) (map[string]float32, error) {
	for _, metric := range metrics {
		switch opts.Task {
		case RatingTask:
			if !lo.Contains(ratingMetrics, metric) {
				return nil, errors.Annotatef(ErrIncompatibleMetric, "%q requires a ranking task", metric)
			}
		case RankingTask:
			if !lo.Contains(rankingMetrics, metric) {
				return nil, errors.Annotatef(ErrIncompatibleMetric, "%q requires a rating task", metric)
			}
		default:
			return nil, errors.Errorf("unknown task %d", int(opts.Task))
		}
	}
	switch opts.Task {
	case RatingTask:
		return evaluateRating(eng, testSet, opts, metrics)
	default:
		return evaluateRanking(eng, testSet, trainSet, opts, metrics)
	}
}

func evaluateRating(eng *engine.Engine, testSet *dataset.Dataset, opts Options, metrics []string) (map[string]float32, error) {
	if testSet.Count() == 0 {
		return nil, errors.Errorf("cannot evaluate an empty record set")
	}
	var sumSq, sumAbs, sumLabel float64
	labels := make([]float64, 0, testSet.Count())
	for i := 0; i < testSet.Count(); i++ {
		userIndex, itemIndex := testSet.GetIndex(i)
		prediction, err := eng.PredictIndexes(userIndex, itemIndex, opts.Policy)
		if err != nil {
			return nil, errors.Trace(err)
		}
		label := float64(testSet.Label(i))
		diff := label - float64(prediction)
		sumSq += diff * diff
		sumAbs += math.Abs(diff)
		sumLabel += label
		labels = append(labels, label)
	}
	count := float64(len(labels))
	results := make(map[string]float32)
	for _, metric := range metrics {
		switch metric {
		case RMSE:
			results[RMSE] = float32(math.Sqrt(sumSq / count))
		case MAE:
			results[MAE] = float32(sumAbs / count)
		case R2:
			mean := sumLabel / count
			var ssTot float64
			for _, label := range labels {
				ssTot += (label - mean) * (label - mean)
			}
			if ssTot == 0 {
				results[R2] = 0
			} else {
				results[R2] = float32(1 - sumSq/ssTot)
			}
		}
	}
	return results, nil
}

func evaluateRanking(eng *engine.Engine, testSet, trainSet *dataset.Dataset, opts Options, metrics []string) (map[string]float32, error) {
	if opts.TopK <= 0 {
		return nil, errors.Errorf("ranking metrics require a positive cutoff, got %d", opts.TopK)
	}
	info := eng.Info()
	sums := make(map[string]float32)
	count := float32(0)
	for userIndex := int32(0); userIndex < int32(info.CountUsers()); userIndex++ {
		positives := testSet.UserFeedback(userIndex)
		if len(positives) == 0 {
			continue
		}
		targetSet := mapset.NewThreadUnsafeSet(positives...)
		candidates := rankingCandidates(info, trainSet, userIndex)
		rankList := eng.RankIndexes(userIndex, candidates, opts.TopK)
		count++
		for _, metric := range metrics {
			switch metric {
			case Precision:
				sums[metric] += precision(targetSet, rankList)
			case Recall:
				sums[metric] += recall(targetSet, rankList)
			case MAP:
				sums[metric] += averagePrecision(targetSet, rankList)
			case NDCG:
				sums[metric] += ndcg(targetSet, rankList)
			case HR:
				sums[metric] += hitRatio(targetSet, rankList)
			case AUC:
				sums[metric] += userAUC(eng, targetSet, userIndex, candidates)
			}
		}
	}
	if count == 0 {
		return nil, errors.Errorf("no evaluable users in the record set")
	}
	results := make(map[string]float32, len(metrics))
	for _, metric := range metrics {
		results[metric] = sums[metric] / count
	}
	return results, nil
}

// rankingCandidates returns the scoring candidates of a user: every
// registered item minus the user's training-time consumed items.
func rankingCandidates(info *dataset.Info, trainSet *dataset.Dataset, userIndex int32) []int32 {
	consumed := mapset.NewThreadUnsafeSet[int32]()
	if trainSet != nil {
		for _, itemIndex := range trainSet.UserFeedback(userIndex) {
			consumed.Add(itemIndex)
		}
	}
	candidates := make([]int32, 0, info.CountItems())
	for itemIndex := int32(0); itemIndex < int32(info.CountItems()); itemIndex++ {
		if !consumed.Contains(itemIndex) {
			candidates = append(candidates, itemIndex)
		}
	}
	return candidates
}
