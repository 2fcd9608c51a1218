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
package main

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/tabrec-io/tabrec/base/log"
	"github.com/tabrec-io/tabrec/config"
	"github.com/tabrec-io/tabrec/dataset"
	"github.com/tabrec-io/tabrec/engine"
	"github.com/tabrec-io/tabrec/eval"
	"github.com/tabrec-io/tabrec/model"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "tabrec",
	Short: "Feature engineering and baseline evaluation for tabular recommendation data.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Build datasets from a table, fit the baseline and report metrics.",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		run, err := prepare(conf)
		if err != nil {
			log.Logger().Fatal("failed to prepare datasets", zap.Error(err))
		}
		fmt.Println(run.info.String())

		type split struct {
			name string
			set  *dataset.Dataset
		}
		splits := make([]split, 0, 2)
		if run.evalSet != nil {
			splits = append(splits, split{"eval", run.evalSet})
		}
		splits = append(splits, split{"test", run.testSet})
		for _, s := range splits {
			results, err := eval.Evaluate(run.engine, s.set, run.trainSet, eval.Options{
				Task:   run.task,
				TopK:   conf.Eval.TopK,
				Policy: run.policy,
			}, conf.Eval.Metrics...)
			if err != nil {
				log.Logger().Fatal("failed to evaluate", zap.String("split", s.name), zap.Error(err))
			}
			fmt.Printf("[%s]\n", s.name)
			for _, metric := range conf.Eval.Metrics {
				fmt.Printf("%-12s%.6f\n", metric, results[metric])
			}
		}
	},
}

var recommendCommand = &cobra.Command{
	Use:   "recommend [user_id ...]",
	Short: "Print Top-N recommendations for the given users, or every training user.",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		run, err := prepare(conf)
		if err != nil {
			log.Logger().Fatal("failed to prepare datasets", zap.Error(err))
		}
		users := args
		if len(users) == 0 {
			users = run.info.UserIndex.Names()
		}
		bar := progressbar.Default(int64(len(users)), "recommend")
		for _, userId := range users {
			recommendations, err := run.engine.RecommendUser(userId, conf.Engine.TopN, run.policy, engine.RecommendOptions{
				FilterConsumed: conf.Engine.FilterConsumed,
			})
			if err != nil {
				log.Logger().Fatal("failed to recommend", zap.String("user_id", userId), zap.Error(err))
			}
			_ = bar.Add(1)
			fmt.Printf("%s:", userId)
			for _, r := range recommendations {
				fmt.Printf(" %s(%.4f)", r.ItemId, r.Score)
			}
			fmt.Println()
		}
	},
}

// runContext carries everything a subcommand needs after the shared
// load/split/build/fit pipeline.
type runContext struct {
	info     *dataset.Info
	trainSet *dataset.Dataset
	evalSet  *dataset.Dataset
	testSet  *dataset.Dataset
	engine   *engine.Engine
	policy   engine.ColdStartPolicy
	task     eval.Task
}

func prepare(conf *config.Config) (*runContext, error) {
	table, err := dataset.ReadTable(conf.Data.Path, conf.Data.Separator, conf.Data.HasHeader)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("loaded table",
		zap.String("path", conf.Data.Path),
		zap.Int("rows", table.Len()))

	schema, err := conf.BuildSchema(table)
	if err != nil {
		return nil, errors.Trace(err)
	}

	var parts []*dataset.Table
	switch conf.Split.Method {
	case "chrono":
		parts, err = dataset.ChronoSplit(table, schema.TimeColumn, conf.Split.Ratios)
	default:
		parts, err = dataset.RandomSplit(table, conf.Split.Ratios, conf.Split.Seed)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, errors.Trace(err)
	}
	trainSet, info, err := builder.BuildTrainSet(parts[0])
	if err != nil {
		return nil, errors.Trace(err)
	}
	var evalSet *dataset.Dataset
	if len(parts) > 2 {
		evalTable := &dataset.Table{Header: table.Header}
		for _, part := range parts[1 : len(parts)-1] {
			evalTable.Rows = append(evalTable.Rows, part.Rows...)
		}
		evalSet, err = builder.BuildEvalSet(evalTable)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	testSet, err := builder.BuildTestSet(parts[len(parts)-1])
	if err != nil {
		return nil, errors.Trace(err)
	}

	task := eval.RatingTask
	if conf.Eval.Task == "ranking" {
		task = eval.RankingTask
	}
	fitSet := trainSet
	if task == eval.RankingTask && conf.Sampler.NumNegatives > 0 {
		distribution, err := conf.Distribution()
		if err != nil {
			return nil, errors.Trace(err)
		}
		var stats dataset.SampleStats
		fitSet, stats, err = dataset.SampleNegatives(trainSet, conf.Sampler.NumNegatives, distribution, conf.Sampler.Seed)
		if err != nil {
			return nil, errors.Trace(err)
		}
		log.Logger().Info("sampled negatives",
			zap.Int("sampled", stats.Sampled),
			zap.Int("fallbacks", stats.Fallbacks))
	}

	baseline := model.NewBaseline(0, 0)
	if err := baseline.Fit(fitSet); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("fitted baseline",
		zap.Float32("train_rmse", model.RMSE(baseline, fitSet)))

	policy, err := conf.ColdStartPolicy()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &runContext{
		info:     info,
		trainSet: trainSet,
		evalSet:  evalSet,
		testSet:  testSet,
		engine:   engine.NewEngine(info, baseline, trainSet),
		policy:   policy,
		task:     task,
	}, nil
}

func init() {
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "tabrec.toml", "configuration file path")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(evaluateCommand)
	rootCommand.AddCommand(recommendCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
