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
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/tabrec-io/tabrec/dataset"
	"github.com/tabrec-io/tabrec/engine"
)

// Config is the configuration of a training and evaluation run.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Schema  SchemaConfig  `mapstructure:"schema"`
	Split   SplitConfig   `mapstructure:"split"`
	Sampler SamplerConfig `mapstructure:"sampler"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Eval    EvalConfig    `mapstructure:"eval"`
}

// DataConfig locates the interaction table.
type DataConfig struct {
	Path      string `mapstructure:"path" validate:"required"`
	Separator string `mapstructure:"separator"`
	HasHeader bool   `mapstructure:"has_header"`
}

// SchemaConfig declares the columns of the interaction table by name.
// Column names are resolved to positions against the table header.
type SchemaConfig struct {
	UserColumn  string              `mapstructure:"user_column" validate:"required"`
	ItemColumn  string              `mapstructure:"item_column" validate:"required"`
	LabelColumn string              `mapstructure:"label_column" validate:"required"`
	TimeColumn  string              `mapstructure:"time_column"`
	Sparse      []SparseFieldConfig `mapstructure:"sparse" validate:"dive"`
	Dense       []DenseFieldConfig  `mapstructure:"dense" validate:"dive"`
}

// SparseFieldConfig declares one categorical column.
type SparseFieldConfig struct {
	Column string `mapstructure:"column" validate:"required"`
	Owner  string `mapstructure:"owner" validate:"oneof=interaction user item"`
	// Multi marks the column as multi-valued.
	Multi     bool   `mapstructure:"multi"`
	Width     int    `mapstructure:"width" validate:"min=0"`
	Separator string `mapstructure:"multi_separator"`
}

// DenseFieldConfig declares one numeric column.
type DenseFieldConfig struct {
	Column      string `mapstructure:"column" validate:"required"`
	Owner       string `mapstructure:"owner" validate:"oneof=interaction user item"`
	Standardize bool   `mapstructure:"standardize"`
}

// SplitConfig controls the train/eval/test partition.
type SplitConfig struct {
	Method string    `mapstructure:"method" validate:"oneof=random chrono"`
	Ratios []float64 `mapstructure:"ratios" validate:"min=2,dive,gt=0"`
	Seed   int64     `mapstructure:"seed"`
}

// SamplerConfig controls negative sampling for implicit tasks.
type SamplerConfig struct {
	NumNegatives int    `mapstructure:"num_negatives" validate:"min=0"`
	Distribution string `mapstructure:"distribution" validate:"oneof=uniform popularity"`
	Seed         int64  `mapstructure:"seed"`
}

// EngineConfig controls prediction and recommendation behavior.
type EngineConfig struct {
	ColdStart      string `mapstructure:"cold_start" validate:"oneof=average popular fail"`
	TopN           int    `mapstructure:"top_n" validate:"min=1"`
	FilterConsumed bool   `mapstructure:"filter_consumed"`
}

// EvalConfig selects the evaluation task and metrics.
type EvalConfig struct {
	Task    string   `mapstructure:"task" validate:"oneof=rating ranking"`
	TopK    int      `mapstructure:"top_k" validate:"min=1"`
	Metrics []string `mapstructure:"metrics" validate:"min=1"`
}

// GetDefaultConfig returns a configuration with the default values filled.
func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Separator: ",",
			HasHeader: true,
		},
		Split: SplitConfig{
			Method: "random",
			Ratios: []float64{0.8, 0.1, 0.1},
			Seed:   0,
		},
		Sampler: SamplerConfig{
			NumNegatives: 0,
			Distribution: "uniform",
			Seed:         0,
		},
		Engine: EngineConfig{
			ColdStart:      "average",
			TopN:           10,
			FilterConsumed: true,
		},
		Eval: EvalConfig{
			Task:    "rating",
			TopK:    10,
			Metrics: []string{"rmse", "mae"},
		},
	}
}

func setDefault() {
	// [data]
	viper.SetDefault("data.separator", ",")
	viper.SetDefault("data.has_header", true)
	// [split]
	viper.SetDefault("split.method", "random")
	viper.SetDefault("split.ratios", []float64{0.8, 0.1, 0.1})
	viper.SetDefault("split.seed", 0)
	// [sampler]
	viper.SetDefault("sampler.num_negatives", 0)
	viper.SetDefault("sampler.distribution", "uniform")
	viper.SetDefault("sampler.seed", 0)
	// [engine]
	viper.SetDefault("engine.cold_start", "average")
	viper.SetDefault("engine.top_n", 10)
	viper.SetDefault("engine.filter_consumed", true)
	// [eval]
	viper.SetDefault("eval.task", "rating")
	viper.SetDefault("eval.top_k", 10)
	viper.SetDefault("eval.metrics", []string{"rmse", "mae"})
}

// LoadConfig loads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks struct tags and the cross-field constraints tags cannot
// express: split ratios must sum to one and a column may appear at most once
// across the schema.
func (config *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	sum := lo.Sum(config.Split.Ratios)
	if sum < 1-1e-6 || sum > 1+1e-6 {
		return errors.Errorf("split ratios must sum to 1, got %v", config.Split.Ratios)
	}
	seen := make(map[string]bool)
	for _, column := range config.columnNames() {
		if column == "" {
			continue
		}
		if seen[column] {
			return errors.Errorf("column %q declared more than once", column)
		}
		seen[column] = true
	}
	return nil
}

func (config *Config) columnNames() []string {
	columns := []string{
		config.Schema.UserColumn,
		config.Schema.ItemColumn,
		config.Schema.LabelColumn,
		config.Schema.TimeColumn,
	}
	for _, field := range config.Schema.Sparse {
		columns = append(columns, field.Column)
	}
	for _, field := range config.Schema.Dense {
		columns = append(columns, field.Column)
	}
	return columns
}

// BuildSchema resolves the configured column names against a table header
// and assembles the dataset schema.
func (config *Config) BuildSchema(table *dataset.Table) (*dataset.Schema, error) {
	resolve := func(name string) (int, error) {
		position, ok := table.Column(name)
		if !ok {
			return 0, errors.Errorf("column %q not found in header [%s]", name, strings.Join(table.Header, ","))
		}
		return position, nil
	}
	userColumn, err := resolve(config.Schema.UserColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	itemColumn, err := resolve(config.Schema.ItemColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	labelColumn, err := resolve(config.Schema.LabelColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	schema := dataset.NewSchema()
	schema.UserColumn = userColumn
	schema.ItemColumn = itemColumn
	schema.LabelColumn = labelColumn
	if config.Schema.TimeColumn != "" {
		timeColumn, err := resolve(config.Schema.TimeColumn)
		if err != nil {
			return nil, errors.Trace(err)
		}
		schema.TimeColumn = timeColumn
	}
	for _, field := range config.Schema.Sparse {
		column, err := resolve(field.Column)
		if err != nil {
			return nil, errors.Trace(err)
		}
		owner, err := parseOwner(field.Owner)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if field.Multi {
			f := dataset.NewMultiSparseField(field.Column, column, owner, field.Width)
			if field.Separator != "" {
				f.Separator = field.Separator
			}
			schema.AddField(f)
		} else {
			schema.AddField(dataset.NewSparseField(field.Column, column, owner))
		}
	}
	for _, field := range config.Schema.Dense {
		column, err := resolve(field.Column)
		if err != nil {
			return nil, errors.Trace(err)
		}
		owner, err := parseOwner(field.Owner)
		if err != nil {
			return nil, errors.Trace(err)
		}
		schema.AddField(dataset.NewDenseField(field.Column, column, owner, field.Standardize))
	}
	if err := schema.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return schema, nil
}

// ColdStartPolicy parses the configured cold-start policy.
func (config *Config) ColdStartPolicy() (engine.ColdStartPolicy, error) {
	return engine.ParsePolicy(config.Engine.ColdStart)
}

// Distribution parses the configured sampling distribution.
func (config *Config) Distribution() (dataset.Distribution, error) {
	switch config.Sampler.Distribution {
	case "uniform":
		return dataset.Uniform, nil
	case "popularity":
		return dataset.Popularity, nil
	default:
		return dataset.Uniform, errors.Errorf("unknown sampling distribution %q", config.Sampler.Distribution)
	}
}

func parseOwner(name string) (dataset.FieldOwner, error) {
	switch name {
	case "", "interaction":
		return dataset.OwnerInteraction, nil
	case "user":
		return dataset.OwnerUser, nil
	case "item":
		return dataset.OwnerItem, nil
	default:
		return dataset.OwnerInteraction, errors.Errorf("unknown field owner %q", name)
	}
}
