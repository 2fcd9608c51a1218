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
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabrec-io/tabrec/dataset"
	"github.com/tabrec-io/tabrec/engine"
	"github.com/tabrec-io/tabrec/model"
)

func buildSets(t *testing.T, trainRows, testRows [][]string) (*dataset.Dataset, *dataset.Dataset, *dataset.Info) {
	builder, err := dataset.NewBuilder(dataset.NewSchema())
	require.NoError(t, err)
	trainSet, info, err := builder.BuildTrainSet(&dataset.Table{Rows: trainRows})
	require.NoError(t, err)
	testSet, err := builder.BuildTestSet(&dataset.Table{Rows: testRows})
	require.NoError(t, err)
	return trainSet, testSet, info
}

func TestIncompatibleMetric(t *testing.T) {
	trainSet, testSet, info := buildSets(t,
		[][]string{{"u1", "i1", "5"}},
		[][]string{{"u1", "i1", "4"}})
	mean := model.NewGlobalMean()
	require.NoError(t, mean.Fit(trainSet))
	eng := engine.NewEngine(info, mean, trainSet)

	_, err := Evaluate(eng, testSet, trainSet, Options{Task: RatingTask}, Precision)
	assert.True(t, errors.Is(err, ErrIncompatibleMetric))
	_, err = Evaluate(eng, testSet, trainSet, Options{Task: RankingTask, TopK: 10}, RMSE)
	assert.True(t, errors.Is(err, ErrIncompatibleMetric))
}

func TestEvaluateRating(t *testing.T) {
	trainSet, testSet, info := buildSets(t,
		[][]string{
			{"u1", "i1", "5"},
			{"u2", "i1", "3"},
			{"u3", "i2", "4"},
		},
		[][]string{
			{"u1", "i1", "5"},
			{"u2", "i1", "3"},
			{"u3", "i2", "4"},
		})
	mean := model.NewGlobalMean()
	require.NoError(t, mean.Fit(trainSet))
	eng := engine.NewEngine(info, mean, trainSet)

	results, err := Evaluate(eng, testSet, trainSet, Options{Task: RatingTask}, RMSE, MAE, R2)
	require.NoError(t, err)
	// the mean predictor scores 4 everywhere
	assert.InDelta(t, 0.8165, results[RMSE], 1e-3)
	assert.InDelta(t, 0.6667, results[MAE], 1e-3)
	assert.InDelta(t, 0, results[R2], 1e-6)
}

func TestEvaluateRatingColdRows(t *testing.T) {
	trainSet, testSet, info := buildSets(t,
		[][]string{{"u1", "i1", "4"}},
		[][]string{{"u9", "i1", "4"}})
	mean := model.NewGlobalMean()
	require.NoError(t, mean.Fit(trainSet))
	eng := engine.NewEngine(info, mean, trainSet)

	// the lenient policy resolves the unseen user to the global mean
	results, err := Evaluate(eng, testSet, trainSet, Options{Task: RatingTask, Policy: engine.ColdStartAverage}, RMSE)
	require.NoError(t, err)
	assert.InDelta(t, 0, results[RMSE], 1e-6)

	// the strict policy propagates the unknown entity
	_, err = Evaluate(eng, testSet, trainSet, Options{Task: RatingTask, Policy: engine.ColdStartFail}, RMSE)
	assert.True(t, errors.Is(err, dataset.ErrUnknownEntity))
}

func rankingFixture(t *testing.T) (*engine.Engine, *dataset.Dataset, *dataset.Dataset) {
	trainSet, testSet, info := buildSets(t,
		[][]string{
			{"u1", "i1", "1"},
			{"u1", "i2", "1"},
			{"u2", "i1", "1"},
			{"u2", "i3", "1"},
		},
		[][]string{
			{"u1", "i3", "1"},
			{"u2", "i2", "1"},
		})
	popular := model.NewMostPopular()
	require.NoError(t, popular.Fit(trainSet))
	return engine.NewEngine(info, popular, trainSet), trainSet, testSet
}

func TestEvaluateRanking(t *testing.T) {
	eng, trainSet, testSet := rankingFixture(t)

	// after filtering consumed items each user's only candidate is the held
	// out positive
	results, err := Evaluate(eng, testSet, trainSet,
		Options{Task: RankingTask, TopK: 2}, Precision, Recall, MAP, NDCG, HR)
	require.NoError(t, err)
	assert.Equal(t, float32(1), results[Precision])
	assert.Equal(t, float32(1), results[Recall])
	assert.Equal(t, float32(1), results[MAP])
	assert.Equal(t, float32(1), results[NDCG])
	assert.Equal(t, float32(1), results[HR])

	_, err = Evaluate(eng, testSet, trainSet, Options{Task: RankingTask, TopK: 0}, Precision)
	assert.Error(t, err)
}

func TestEvaluateAUC(t *testing.T) {
	eng, _, testSet := rankingFixture(t)

	// without consumed-item filtering every item is a candidate: popularity
	// ranks i1 first, then i2 and i3 by index. u1's positive i3 sits last
	// (AUC 0), u2's positive i2 sits between the negatives (AUC 0.5).
	results, err := Evaluate(eng, testSet, nil, Options{Task: RankingTask, TopK: 2}, AUC)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, results[AUC], 1e-6)
}

func TestRankingMetrics(t *testing.T) {
	targetSet := mapset.NewThreadUnsafeSet[int32](1, 3)
	rankList := []int32{1, 2, 3, 4}

	assert.Equal(t, float32(0.5), precision(targetSet, rankList))
	assert.Equal(t, float32(1), recall(targetSet, rankList))
	assert.Equal(t, float32(1), hitRatio(targetSet, rankList))
	// hits at ranks 1 and 3: (1/1 + 2/3) / 2
	assert.InDelta(t, 0.8333, averagePrecision(targetSet, rankList), 1e-3)
	// dcg = 1/log2(2) + 1/log2(4), idcg = 1/log2(2) + 1/log2(3)
	assert.InDelta(t, 0.9197, ndcg(targetSet, rankList), 1e-3)

	miss := mapset.NewThreadUnsafeSet[int32](9)
	assert.Equal(t, float32(0), precision(miss, rankList))
	assert.Equal(t, float32(0), hitRatio(miss, rankList))
	assert.Equal(t, float32(0), ndcg(miss, rankList))
}
