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
	"math"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
)

// encodeSparse encodes a sparse cell into field-local vocabulary indices.
// Training-time encoding grows the vocabulary; inference-time encoding maps
// unseen values to the reserved unknown index. Multi-valued cells are split
// on the field separator, truncated to the field width and padded with the
// unknown index so every row of a field has the same arity.
func (f *Field) encodeSparse(cell string, training bool) []int32 {
	switch f.Kind {
	case SparseSingle:
		return []int32{f.encodeValue(strings.TrimSpace(cell), training)}
	case SparseMulti:
		parts := strings.Split(cell, f.Separator)
		indices := make([]int32, 0, f.Width)
		for _, part := range parts {
			if len(indices) == f.Width {
				break
			}
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			indices = append(indices, f.encodeValue(part, training))
		}
		for len(indices) < f.Width {
			indices = append(indices, 0)
		}
		return indices
	default:
		panic("encodeSparse called on dense field")
	}
}

func (f *Field) encodeValue(value string, training bool) int32 {
	if training {
		return f.vocab.Add(value)
	}
	if number := f.vocab.ToNumber(value); number != base.NotId {
		return number
	}
	return 0
}

// arity returns the number of index slots the field occupies per row.
func (f *Field) arity() int {
	if f.Kind == SparseMulti {
		return f.Width
	}
	return 1
}

// parseDense parses a numeric cell. Non-finite values are malformed input:
// the pipeline does not impute.
func (f *Field) parseDense(cell string) (float32, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(cell), 32)
	if err != nil {
		return 0, errors.Annotatef(ErrMalformedInput, "column %q: %v", f.Name, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.Annotatef(ErrMalformedInput, "column %q: non-finite value %q", f.Name, cell)
	}
	return float32(value), nil
}

// transform applies the frozen standardization statistics to a dense value.
func (f *Field) transform(value float32) float32 {
	if !f.Standardize {
		return value
	}
	if f.stdDev == 0 {
		return 0
	}
	return (value - f.mean) / f.stdDev
}

// freezeStats computes and freezes mean and standard deviation of a dense
// field over the training values.
func (f *Field) freezeStats(values []float32) {
	if len(values) == 0 {
		f.mean, f.stdDev = 0, 0
		return
	}
	sum := float32(0)
	for _, v := range values {
		sum += v
	}
	mean := sum / float32(len(values))
	sumSq := float32(0)
	for _, v := range values {
		sumSq += (v - mean) * (v - mean)
	}
	f.mean = mean
	f.stdDev = math32.Sqrt(sumSq / float32(len(values)))
}
