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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/tabrec-io/tabrec/dataset"
)

const configTemplate = `
[data]
path = "ratings.csv"
separator = ","
has_header = true

[schema]
user_column = "user"
item_column = "item"
label_column = "rating"
time_column = "timestamp"

[[schema.sparse]]
column = "genre"
owner = "item"
multi = true
width = 3

[[schema.dense]]
column = "age"
owner = "user"
standardize = true

[split]
method = "chrono"
ratios = [0.7, 0.15, 0.15]
seed = 42

[sampler]
num_negatives = 4
distribution = "popularity"

[engine]
cold_start = "popular"
top_n = 20

[eval]
task = "ranking"
top_k = 10
metrics = ["precision", "recall", "ndcg"]
`

func TestUnmarshal(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(configTemplate))
	assert.NoError(t, err)
	var conf Config
	err = viper.Unmarshal(&conf)
	assert.NoError(t, err)

	// [data]
	assert.Equal(t, "ratings.csv", conf.Data.Path)
	assert.Equal(t, ",", conf.Data.Separator)
	assert.True(t, conf.Data.HasHeader)
	// [schema]
	assert.Equal(t, "user", conf.Schema.UserColumn)
	assert.Equal(t, "timestamp", conf.Schema.TimeColumn)
	assert.Len(t, conf.Schema.Sparse, 1)
	assert.True(t, conf.Schema.Sparse[0].Multi)
	assert.Equal(t, 3, conf.Schema.Sparse[0].Width)
	assert.Len(t, conf.Schema.Dense, 1)
	assert.True(t, conf.Schema.Dense[0].Standardize)
	// [split]
	assert.Equal(t, "chrono", conf.Split.Method)
	assert.Equal(t, []float64{0.7, 0.15, 0.15}, conf.Split.Ratios)
	assert.Equal(t, int64(42), conf.Split.Seed)
	// [sampler]
	assert.Equal(t, 4, conf.Sampler.NumNegatives)
	assert.Equal(t, "popularity", conf.Sampler.Distribution)
	// [engine]
	assert.Equal(t, "popular", conf.Engine.ColdStart)
	assert.Equal(t, 20, conf.Engine.TopN)
	// [eval]
	assert.Equal(t, "ranking", conf.Eval.Task)
	assert.Equal(t, []string{"precision", "recall", "ndcg"}, conf.Eval.Metrics)

	assert.NoError(t, conf.Validate())
}

func TestSetDefault(t *testing.T) {
	viper.Reset()
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var conf Config
	err = viper.Unmarshal(&conf)
	assert.NoError(t, err)
	expected := GetDefaultConfig()
	expected.Data.Path = ""
	assert.Equal(t, expected, &conf)
}

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), "tabrec.toml")
	err := os.WriteFile(path, []byte(configTemplate), 0o644)
	assert.NoError(t, err)
	conf, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "ratings.csv", conf.Data.Path)
}

func TestValidateRatios(t *testing.T) {
	conf := GetDefaultConfig()
	conf.Data.Path = "ratings.csv"
	conf.Schema.UserColumn = "user"
	conf.Schema.ItemColumn = "item"
	conf.Schema.LabelColumn = "rating"
	assert.NoError(t, conf.Validate())

	conf.Split.Ratios = []float64{0.5, 0.4}
	assert.Error(t, conf.Validate())
}

func TestValidateDuplicateColumns(t *testing.T) {
	conf := GetDefaultConfig()
	conf.Data.Path = "ratings.csv"
	conf.Schema.UserColumn = "user"
	conf.Schema.ItemColumn = "item"
	conf.Schema.LabelColumn = "rating"
	conf.Schema.Dense = []DenseFieldConfig{{Column: "user", Owner: "user"}}
	assert.Error(t, conf.Validate())
}

func TestValidatePolicy(t *testing.T) {
	conf := GetDefaultConfig()
	conf.Data.Path = "ratings.csv"
	conf.Schema.UserColumn = "user"
	conf.Schema.ItemColumn = "item"
	conf.Schema.LabelColumn = "rating"
	conf.Engine.ColdStart = "guess"
	assert.Error(t, conf.Validate())
}

func TestBuildSchema(t *testing.T) {
	conf := GetDefaultConfig()
	conf.Schema.UserColumn = "user"
	conf.Schema.ItemColumn = "item"
	conf.Schema.LabelColumn = "rating"
	conf.Schema.TimeColumn = "timestamp"
	conf.Schema.Sparse = []SparseFieldConfig{{Column: "genre", Owner: "item", Multi: true, Width: 3}}
	conf.Schema.Dense = []DenseFieldConfig{{Column: "age", Owner: "user", Standardize: true}}

	table := &dataset.Table{Header: []string{"user", "item", "rating", "timestamp", "genre", "age"}}
	schema, err := conf.BuildSchema(table)
	assert.NoError(t, err)
	assert.Equal(t, 0, schema.UserColumn)
	assert.Equal(t, 1, schema.ItemColumn)
	assert.Equal(t, 2, schema.LabelColumn)
	assert.Equal(t, 3, schema.TimeColumn)
	assert.Len(t, schema.Fields, 2)
	assert.Equal(t, dataset.SparseMulti, schema.Fields[0].Kind)
	assert.Equal(t, dataset.OwnerItem, schema.Fields[0].Owner)
	assert.Equal(t, dataset.Dense, schema.Fields[1].Kind)

	conf.Schema.Dense[0].Column = "height"
	_, err = conf.BuildSchema(table)
	assert.Error(t, err)
}
