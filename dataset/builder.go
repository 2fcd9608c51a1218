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

	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
	"github.com/tabrec-io/tabrec/base/log"
	"go.uber.org/zap"
)

// Builder turns raw tables into record sets. A Builder owns one Info and is
// the only writer of its registries and field vocabularies. Training builds
// grow the Info; eval and test builds reuse it read-only. Concurrent builds
// against the same Builder are not supported.
type Builder struct {
	schema *Schema
	info   *Info

	// accumulated across training builds of one session
	sumLabels float64
	numRows   int
}

// NewBuilder creates a Builder for a validated schema.
func NewBuilder(schema *Schema) (*Builder, error) {
	if err := schema.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Builder{schema: schema, info: NewInfo(schema)}, nil
}

// Info returns the dataset descriptor owned by this builder.
func (b *Builder) Info() *Info {
	return b.info
}

// BuildTrainSet builds a training record set, growing the registries, field
// vocabularies and corpus statistics. Calling it again on the same Builder
// performs an incremental retrain build: previously issued indices are kept
// and new identifiers are appended.
func (b *Builder) BuildTrainSet(table *Table) (*Dataset, *Info, error) {
	// Validate every row before any mutation so a malformed row aborts the
	// build without leaking partial registry growth.
	labels, err := b.validate(table)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	// Register identifiers and grow vocabularies.
	denseSamples := make([][]float32, len(b.schema.Fields))
	for _, row := range table.Rows {
		b.info.UserIndex.Add(strings.TrimSpace(row[b.schema.UserColumn]))
		b.info.ItemIndex.Add(strings.TrimSpace(row[b.schema.ItemColumn]))
		for k, field := range b.schema.Fields {
			if field.Kind == Dense {
				value, _ := field.parseDense(row[field.Column])
				denseSamples[k] = append(denseSamples[k], value)
			} else {
				field.encodeSparse(row[field.Column], true)
			}
		}
	}
	for k, field := range b.schema.Fields {
		if field.Kind == Dense {
			field.freezeStats(denseSamples[k])
		}
	}
	for _, label := range labels {
		b.sumLabels += float64(label)
	}
	b.numRows += len(labels)
	mean := float32(0)
	if b.numRows > 0 {
		mean = float32(b.sumLabels / float64(b.numRows))
	}
	b.info.freeze(mean, b.numRows)
	// Assemble tensors against the frozen layout.
	set := b.assemble(table, labels, true)
	log.Logger().Info("built train set",
		zap.Int("num_users", b.info.CountUsers()),
		zap.Int("num_items", b.info.CountItems()),
		zap.Int("num_records", set.Count()),
		zap.Float64("sparsity", b.info.Sparsity()))
	return set, b.info, nil
}

// BuildEvalSet builds a held-out record set against the training Info. No
// index is created: identifiers unseen at training time stay unresolved and
// surface as cold-start queries at prediction time.
func (b *Builder) BuildEvalSet(table *Table) (*Dataset, error) {
	labels, err := b.validate(table)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b.assemble(table, labels, false), nil
}

// BuildTestSet builds a test record set. It behaves exactly like
// BuildEvalSet.
func (b *Builder) BuildTestSet(table *Table) (*Dataset, error) {
	return b.BuildEvalSet(table)
}

// validate checks every row against the declared schema and parses labels.
// Any missing or non-finite value aborts the whole build.
func (b *Builder) validate(table *Table) ([]float32, error) {
	maxColumn := b.schema.maxColumn()
	labels := make([]float32, 0, table.Len())
	for i, row := range table.Rows {
		if len(row) <= maxColumn {
			return nil, errors.Annotatef(ErrMalformedInput,
				"row %d: got %d columns, schema declares up to column %d", i, len(row), maxColumn)
		}
		for _, column := range b.declaredColumns() {
			if strings.TrimSpace(row[column]) == "" {
				return nil, errors.Annotatef(ErrMalformedInput, "row %d: missing value in column %d", i, column)
			}
		}
		label, err := strconv.ParseFloat(strings.TrimSpace(row[b.schema.LabelColumn]), 32)
		if err != nil {
			return nil, errors.Annotatef(ErrMalformedInput, "row %d: label: %v", i, err)
		}
		if math.IsNaN(label) || math.IsInf(label, 0) {
			return nil, errors.Annotatef(ErrMalformedInput, "row %d: non-finite label", i)
		}
		for _, field := range b.schema.Fields {
			if field.Kind == Dense {
				if _, err := field.parseDense(row[field.Column]); err != nil {
					return nil, errors.Annotatef(err, "row %d", i)
				}
			}
		}
		labels = append(labels, float32(label))
	}
	return labels, nil
}

func (b *Builder) declaredColumns() []int {
	columns := []int{b.schema.UserColumn, b.schema.ItemColumn, b.schema.LabelColumn}
	if b.schema.TimeColumn >= 0 {
		columns = append(columns, b.schema.TimeColumn)
	}
	for _, field := range b.schema.Fields {
		columns = append(columns, field.Column)
	}
	return columns
}

// assemble encodes validated rows into a Dataset. Training assembly also
// records entity-level feature tensors in the Info; eval assembly resolves
// identifiers read-only and leaves unseen ones as NotId.
func (b *Builder) assemble(table *Table, labels []float32, training bool) *Dataset {
	set := &Dataset{info: b.info}
	userSparse := b.schema.sparseFieldsOf(OwnerUser)
	itemSparse := b.schema.sparseFieldsOf(OwnerItem)
	userDense := b.schema.denseFieldsOf(OwnerUser)
	itemDense := b.schema.denseFieldsOf(OwnerItem)
	ctxSparse := b.schema.sparseFieldsOf(OwnerInteraction)
	ctxDense := b.schema.denseFieldsOf(OwnerInteraction)
	for i, row := range table.Rows {
		userId := strings.TrimSpace(row[b.schema.UserColumn])
		itemId := strings.TrimSpace(row[b.schema.ItemColumn])
		userIndex := b.info.UserIndex.ToNumber(userId)
		itemIndex := b.info.ItemIndex.ToNumber(itemId)
		set.users = append(set.users, userIndex)
		set.items = append(set.items, itemIndex)
		set.labels = append(set.labels, labels[i])
		set.positiveCount++
		if training {
			b.info.setUserFeatures(userIndex,
				encodeLocals(userSparse, row), parseRaw(userDense, row))
			b.info.setItemFeatures(itemIndex,
				encodeLocals(itemSparse, row), parseRaw(itemDense, row))
		}
		if len(ctxSparse) > 0 {
			set.ctxLocals = append(set.ctxLocals, encodeLocals(ctxSparse, row))
		}
		if len(ctxDense) > 0 {
			set.ctxRaw = append(set.ctxRaw, parseRaw(ctxDense, row))
		}
		if userIndex != base.NotId && itemIndex != base.NotId {
			for int(userIndex) >= len(set.userFeedback) {
				set.userFeedback = append(set.userFeedback, nil)
			}
			set.userFeedback[userIndex] = append(set.userFeedback[userIndex], itemIndex)
		}
	}
	return set
}

// encodeLocals encodes the sparse cells of one owner into field-local
// indices. Vocabularies are already grown during registration, so encoding
// is read-only here.
func encodeLocals(fields []*Field, row []string) []int32 {
	if len(fields) == 0 {
		return nil
	}
	locals := make([]int32, 0, len(fields))
	for _, field := range fields {
		locals = append(locals, field.encodeSparse(row[field.Column], false)...)
	}
	return locals
}

// parseRaw parses the dense cells of one owner. Rows were validated, so
// parsing cannot fail here.
func parseRaw(fields []*Field, row []string) []float32 {
	if len(fields) == 0 {
		return nil
	}
	raw := make([]float32, 0, len(fields))
	for _, field := range fields {
		value, _ := field.parseDense(row[field.Column])
		raw = append(raw, value)
	}
	return raw
}
