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
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabrec-io/tabrec/base"
)

func ratingsTable() *Table {
	return &Table{
		Header: []string{"user", "item", "rating"},
		Rows: [][]string{
			{"u1", "i1", "5"},
			{"u2", "i1", "3"},
			{"u3", "i2", "4"},
		},
	}
}

func TestBuildTrainSet(t *testing.T) {
	builder, err := NewBuilder(NewSchema())
	require.NoError(t, err)
	train, info, err := builder.BuildTrainSet(ratingsTable())
	require.NoError(t, err)

	assert.Equal(t, 3, info.CountUsers())
	assert.Equal(t, 2, info.CountItems())
	assert.Equal(t, 3, info.CountInteractions())
	assert.Equal(t, 0.5, info.Sparsity())
	assert.Equal(t, float32(4), info.GlobalMean())
	assert.Equal(t, int32(5), info.NumFeatures())
	assert.Equal(t, "n_users: 3, n_items: 2, data density: 50.0000 %", info.String())

	assert.Equal(t, 3, train.Count())
	userIndex, itemIndex := train.GetIndex(0)
	assert.Equal(t, int32(0), userIndex)
	assert.Equal(t, int32(0), itemIndex)
	assert.Equal(t, float32(5), train.Label(0))
	assert.Equal(t, []int32{0}, train.UserFeedback(0))

	// i1 carries two interactions, i2 one
	assert.Equal(t, []int32{0}, info.PopularItems(1))
	assert.Equal(t, []int32{0, 1}, info.PopularItems(10))

	// round trips
	number, err := info.LookupUser("u2")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), number)
	name, ok := info.ItemName(1)
	assert.True(t, ok)
	assert.Equal(t, "i2", name)
	_, err = info.LookupUser("u9")
	assert.True(t, errors.Is(err, ErrUnknownEntity))
}

func TestMalformedInputAbortsWithoutMutation(t *testing.T) {
	schema := NewSchema()
	genre := NewSparseField("genre", 3, OwnerItem)
	schema.AddField(genre)
	builder, err := NewBuilder(schema)
	require.NoError(t, err)

	_, _, err = builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "i1", "5", "action"},
		{"u2", "i1", "bad", "comedy"},
	}})
	assert.True(t, errors.Is(err, ErrMalformedInput))
	// nothing was registered, not even from the valid first row
	assert.Equal(t, 0, builder.Info().CountUsers())
	assert.Equal(t, 0, builder.Info().CountItems())
	assert.Equal(t, int32(1), genre.Cardinality())

	// missing value
	_, _, err = builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "", "5", "action"},
	}})
	assert.True(t, errors.Is(err, ErrMalformedInput))

	// short row
	_, _, err = builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "i1", "5"},
	}})
	assert.True(t, errors.Is(err, ErrMalformedInput))

	// non-finite label
	_, _, err = builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "i1", "NaN", "action"},
	}})
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestBuildEvalSet(t *testing.T) {
	builder, err := NewBuilder(NewSchema())
	require.NoError(t, err)
	_, info, err := builder.BuildTrainSet(ratingsTable())
	require.NoError(t, err)

	evalSet, err := builder.BuildEvalSet(&Table{Rows: [][]string{
		{"u1", "i2", "2"},
		{"u4", "i1", "5"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, evalSet.Count())

	userIndex, itemIndex := evalSet.GetIndex(0)
	assert.Equal(t, int32(0), userIndex)
	assert.Equal(t, int32(1), itemIndex)

	// unseen identifiers stay unresolved and never grow the registry
	userIndex, itemIndex = evalSet.GetIndex(1)
	assert.Equal(t, base.NotId, userIndex)
	assert.Equal(t, int32(0), itemIndex)
	assert.Equal(t, 3, info.CountUsers())

	// malformed eval rows abort too
	_, err = builder.BuildEvalSet(&Table{Rows: [][]string{{"u1", "i1", "oops"}}})
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestIncrementalRetrain(t *testing.T) {
	builder, err := NewBuilder(NewSchema())
	require.NoError(t, err)
	_, info, err := builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "i1", "5"},
		{"u2", "i1", "3"},
	}})
	require.NoError(t, err)
	assert.Equal(t, float32(4), info.GlobalMean())

	_, info, err = builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u2", "i2", "4"},
		{"u4", "i1", "4"},
	}})
	require.NoError(t, err)
	// old indices survive, new identifiers are appended
	number, err := info.LookupUser("u2")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), number)
	number, err = info.LookupUser("u4")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), number)
	assert.Equal(t, 4, info.CountInteractions())
	assert.Equal(t, float32(4), info.GlobalMean())
}

func TestUnifiedFeatureSpace(t *testing.T) {
	schema := NewSchema()
	genre := NewMultiSparseField("genre", 3, OwnerItem, 2)
	age := NewDenseField("age", 4, OwnerUser, false)
	schema.AddField(genre).AddField(age)
	builder, err := NewBuilder(schema)
	require.NoError(t, err)

	train, info, err := builder.BuildTrainSet(&Table{Rows: [][]string{
		{"u1", "i1", "5", "a|b|c", "10"},
		{"u2", "i1", "3", "a", "20"},
		{"u3", "i2", "4", "b", "30"},
	}})
	require.NoError(t, err)

	// layout: | 3 users | 2 items | genre (unknown, a, b) | age |
	assert.Equal(t, int32(9), info.NumFeatures())
	assert.Equal(t, int32(5), genre.Offset())
	assert.Equal(t, int32(8), age.Offset())

	// i1 features come from its last training row ("a" padded)
	assert.Equal(t, []int32{6, 5}, info.ItemFeatures(0))
	assert.Equal(t, []int32{7, 5}, info.ItemFeatures(1))
	assert.Equal(t, []float32{10}, info.UserValues(0))

	features, values, target := train.Get(0)
	assert.Equal(t, []int32{0, 3, 6, 5, 8}, features)
	assert.Equal(t, []float32{1, 1, 1, 1, 10}, values)
	assert.Equal(t, float32(5), target)
}
