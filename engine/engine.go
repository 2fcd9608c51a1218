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

// Package engine resolves prediction and Top-N recommendation queries
// against a frozen dataset descriptor and a model backend, applying
// cold-start policies for identifiers unseen at training time.
package engine

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
	"github.com/tabrec-io/tabrec/base/heap"
	"github.com/tabrec-io/tabrec/dataset"
	"github.com/tabrec-io/tabrec/model"
)

// ErrInvalidPolicy reports an unrecognized cold-start policy.
var ErrInvalidPolicy = errors.New("invalid cold start policy")

// ColdStartPolicy decides how queries with unknown identifiers resolve.
type ColdStartPolicy int

const (
	// ColdStartAverage falls back to the frozen global mean label.
	ColdStartAverage ColdStartPolicy = iota
	// ColdStartPopular falls back to the frozen popularity ranking for
	// recommendation and to the global mean for prediction.
	ColdStartPopular
	// ColdStartFail surfaces the unknown identifier as an error.
	ColdStartFail
)

func (p ColdStartPolicy) String() string {
	switch p {
	case ColdStartAverage:
		return "average"
	case ColdStartPopular:
		return "popular"
	case ColdStartFail:
		return "fail"
	default:
		return "invalid"
	}
}

// ParsePolicy parses a cold-start policy name. Unrecognized names are an
// error, never a silent default.
func ParsePolicy(name string) (ColdStartPolicy, error) {
	switch name {
	case "average":
		return ColdStartAverage, nil
	case "popular":
		return ColdStartPopular, nil
	case "fail":
		return ColdStartFail, nil
	default:
		return ColdStartFail, errors.Annotatef(ErrInvalidPolicy, "%q", name)
	}
}

// Recommendation is one ranked item.
type Recommendation struct {
	ItemId    string
	ItemIndex int32
	Score     float32
}

// Engine answers prediction and recommendation queries. It reads the Info
// and the training feedback without ever mutating them, so a frozen Engine
// is safe for concurrent queries.
type Engine struct {
	info      *dataset.Info
	predictor model.Predictor
	trainSet  *dataset.Dataset
}

// NewEngine creates an Engine over a trained backend. The train set supplies
// consumed-item filtering; it may be nil when filtering is not wanted.
func NewEngine(info *dataset.Info, predictor model.Predictor, trainSet *dataset.Dataset) *Engine {
	return &Engine{info: info, predictor: predictor, trainSet: trainSet}
}

// Predict scores a (user, item) pair by raw identifiers. Unknown identifiers
// resolve through the cold-start policy.
func (e *Engine) Predict(userId, itemId string, policy ColdStartPolicy) (float32, error) {
	userIndex, userErr := e.info.LookupUser(userId)
	itemIndex, itemErr := e.info.LookupItem(itemId)
	if userErr == nil && itemErr == nil {
		return e.score(userIndex, itemIndex), nil
	}
	switch policy {
	case ColdStartAverage, ColdStartPopular:
		return e.info.GlobalMean(), nil
	case ColdStartFail:
		if userErr != nil {
			return 0, errors.Trace(userErr)
		}
		return 0, errors.Trace(itemErr)
	default:
		return 0, errors.Annotatef(ErrInvalidPolicy, "%d", int(policy))
	}
}

// PredictIndexes scores a pair of internal indices, applying the cold-start
// policy when either side is NotId. The evaluator iterates held-out record
// sets through it so cold rows and warm rows follow one code path.
func (e *Engine) PredictIndexes(userIndex, itemIndex int32, policy ColdStartPolicy) (float32, error) {
	if userIndex != base.NotId && itemIndex != base.NotId {
		return e.score(userIndex, itemIndex), nil
	}
	switch policy {
	case ColdStartAverage, ColdStartPopular:
		return e.info.GlobalMean(), nil
	case ColdStartFail:
		return 0, errors.Annotatef(dataset.ErrUnknownEntity, "index (%d, %d)", userIndex, itemIndex)
	default:
		return 0, errors.Annotatef(ErrInvalidPolicy, "%d", int(policy))
	}
}

// RecommendOptions tune Top-N retrieval.
type RecommendOptions struct {
	// FilterConsumed excludes items the user interacted with at training
	// time.
	FilterConsumed bool
	// ExcludeItems lists raw item IDs to exclude. Unknown IDs are ignored.
	ExcludeItems []string
	// Candidates restricts scoring to the listed raw item IDs. Unknown IDs
	// are ignored. Empty means all registered items.
	Candidates []string
}

// RecommendUser returns the top n items for a user, scored by the backend,
// sorted by score descending with ties broken by ascending item index. An
// unknown user resolves through the cold-start policy: both average and
// popular fall back to the frozen popularity ranking, which is identical for
// every unknown user.
func (e *Engine) RecommendUser(userId string, n int, policy ColdStartPolicy, opts RecommendOptions) ([]Recommendation, error) {
	if n <= 0 {
		return nil, errors.Errorf("n must be positive, got %d", n)
	}
	userIndex, err := e.info.LookupUser(userId)
	if err != nil {
		switch policy {
		case ColdStartAverage, ColdStartPopular:
			return e.popularFallback(n), nil
		case ColdStartFail:
			return nil, errors.Trace(err)
		default:
			return nil, errors.Annotatef(ErrInvalidPolicy, "%d", int(policy))
		}
	}
	// collect exclusions
	excluded := mapset.NewThreadUnsafeSet[int32]()
	if opts.FilterConsumed && e.trainSet != nil {
		for _, itemIndex := range e.trainSet.UserFeedback(userIndex) {
			excluded.Add(itemIndex)
		}
	}
	for _, itemId := range opts.ExcludeItems {
		if itemIndex := e.info.ItemIndex.ToNumber(itemId); itemIndex != base.NotId {
			excluded.Add(itemIndex)
		}
	}
	// score candidates
	filter := heap.NewTopKFilter[int32, float32](n)
	if len(opts.Candidates) > 0 {
		for _, itemId := range opts.Candidates {
			if itemIndex := e.info.ItemIndex.ToNumber(itemId); itemIndex != base.NotId && !excluded.Contains(itemIndex) {
				filter.Push(itemIndex, e.score(userIndex, itemIndex))
				// a duplicate candidate must not occupy a second slot
				excluded.Add(itemIndex)
			}
		}
	} else {
		for itemIndex := int32(0); itemIndex < int32(e.info.CountItems()); itemIndex++ {
			if !excluded.Contains(itemIndex) {
				filter.Push(itemIndex, e.score(userIndex, itemIndex))
			}
		}
	}
	elems := filter.PopAll()
	recommendations := make([]Recommendation, 0, len(elems))
	for _, elem := range elems {
		itemId, _ := e.info.ItemName(elem.Value)
		recommendations = append(recommendations, Recommendation{
			ItemId:    itemId,
			ItemIndex: elem.Value,
			Score:     elem.Weight,
		})
	}
	return recommendations, nil
}

// RankIndexes scores candidate item indices for a user index and returns the
// top n, used by the ranking evaluator.
func (e *Engine) RankIndexes(userIndex int32, candidates []int32, n int) []int32 {
	filter := heap.NewTopKFilter[int32, float32](n)
	for _, itemIndex := range candidates {
		filter.Push(itemIndex, e.score(userIndex, itemIndex))
	}
	return filter.PopAllValues()
}

// score consults the backend for a resolved pair. Feature-based backends
// receive the assembled unified feature vector of the pair.
func (e *Engine) score(userIndex, itemIndex int32) float32 {
	if featurePredictor, ok := e.predictor.(model.FeaturePredictor); ok {
		features, values := e.featureVector(userIndex, itemIndex)
		return featurePredictor.InternalPredictFeatures(features, values)
	}
	return e.predictor.InternalPredict(userIndex, itemIndex)
}

// featureVector assembles the unified feature tensors of a resolved pair from
// the frozen entity features: the user and item blocks, the entity-owned
// sparse features and the entity-owned dense slots. Interaction-owned fields
// have no value at query time and are omitted.
func (e *Engine) featureVector(userIndex, itemIndex int32) ([]int32, []float32) {
	features := []int32{userIndex, int32(e.info.CountUsers()) + itemIndex}
	values := []float32{1, 1}
	for _, feature := range e.info.UserFeatures(userIndex) {
		features = append(features, feature)
		values = append(values, 1)
	}
	for _, feature := range e.info.ItemFeatures(itemIndex) {
		features = append(features, feature)
		values = append(values, 1)
	}
	userValues := e.info.UserValues(userIndex)
	itemValues := e.info.ItemValues(itemIndex)
	var userAt, itemAt int
	for _, field := range e.info.Schema().DenseFields() {
		switch field.Owner {
		case dataset.OwnerUser:
			if userAt < len(userValues) {
				features = append(features, field.Offset())
				values = append(values, userValues[userAt])
				userAt++
			}
		case dataset.OwnerItem:
			if itemAt < len(itemValues) {
				features = append(features, field.Offset())
				values = append(values, itemValues[itemAt])
				itemAt++
			}
		}
	}
	return features, values
}

// popularFallback materializes the frozen popularity ranking, scored by
// interaction counts.
func (e *Engine) popularFallback(n int) []Recommendation {
	popular := e.info.PopularItems(n)
	recommendations := make([]Recommendation, 0, len(popular))
	for _, itemIndex := range popular {
		itemId, _ := e.info.ItemName(itemIndex)
		recommendations = append(recommendations, Recommendation{
			ItemId:    itemId,
			ItemIndex: itemIndex,
			Score:     float32(e.info.ItemIndex.Count(itemIndex)),
		})
	}
	return recommendations
}

// Info exposes the dataset descriptor backing this engine.
func (e *Engine) Info() *dataset.Info {
	return e.info
}
