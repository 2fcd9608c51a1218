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
	"sort"

	"github.com/araddon/dateparse"
	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
)

// RandomSplit shuffles the table and partitions it by the given ratios. The
// ratios must be positive and sum to one within floating tolerance. The last
// part absorbs rounding so every row lands in exactly one part.
func RandomSplit(table *Table, ratios []float64, seed int64) ([]*Table, error) {
	if err := validateRatios(ratios); err != nil {
		return nil, errors.Trace(err)
	}
	rng := base.NewRandomGenerator(seed)
	perm := rng.Perm(table.Len())
	parts := make([]*Table, len(ratios))
	begin := 0
	for i, ratio := range ratios {
		end := begin + int(float64(table.Len())*ratio)
		if i == len(ratios)-1 {
			end = table.Len()
		}
		parts[i] = table.subset(perm[begin:end])
		begin = end
	}
	return parts, nil
}

// ChronoSplit orders the table by the declared time column and partitions it
// by the given ratios, so trailing parts hold the most recent interactions.
// Time cells are parsed as unix timestamps or any recognizable date format.
func ChronoSplit(table *Table, timeColumn int, ratios []float64) ([]*Table, error) {
	if err := validateRatios(ratios); err != nil {
		return nil, errors.Trace(err)
	}
	if timeColumn < 0 {
		return nil, errors.Errorf("chronological split requires a time column")
	}
	timestamps := make([]int64, table.Len())
	for i, row := range table.Rows {
		if timeColumn >= len(row) {
			return nil, errors.Annotatef(ErrMalformedInput, "row %d: missing time column %d", i, timeColumn)
		}
		timestamp, err := parseTimestamp(row[timeColumn])
		if err != nil {
			return nil, errors.Annotatef(ErrMalformedInput, "row %d: %v", i, err)
		}
		timestamps[i] = timestamp
	}
	order := make([]int, table.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return timestamps[order[i]] < timestamps[order[j]]
	})
	parts := make([]*Table, len(ratios))
	begin := 0
	for i, ratio := range ratios {
		end := begin + int(float64(table.Len())*ratio)
		if i == len(ratios)-1 {
			end = table.Len()
		}
		parts[i] = table.subset(order[begin:end])
		begin = end
	}
	return parts, nil
}

func parseTimestamp(cell string) (int64, error) {
	t, err := dateparse.ParseAny(cell)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return t.Unix(), nil
}

func validateRatios(ratios []float64) error {
	if len(ratios) < 2 {
		return errors.Errorf("at least two split ratios are required")
	}
	sum := 0.0
	for _, ratio := range ratios {
		if ratio <= 0 {
			return errors.Errorf("split ratios must be positive, got %v", ratio)
		}
		sum += ratio
	}
	if sum < 0.999 || sum > 1.001 {
		return errors.Errorf("split ratios must sum to 1, got %v", sum)
	}
	return nil
}
