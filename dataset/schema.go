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
	"fmt"

	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
)

// FieldKind distinguishes how a feature column is encoded.
type FieldKind int

const (
	// SparseSingle is a categorical column holding one value per row.
	SparseSingle FieldKind = iota
	// SparseMulti is a categorical column holding multiple values per row,
	// joined by a separator.
	SparseMulti
	// Dense is a numeric column.
	Dense
)

func (k FieldKind) String() string {
	switch k {
	case SparseSingle:
		return "sparse"
	case SparseMulti:
		return "multi_sparse"
	case Dense:
		return "dense"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldOwner tags which entity a feature column belongs to. User and item
// owned features are stored once per entity and shared across interactions.
type FieldOwner int

const (
	OwnerInteraction FieldOwner = iota
	OwnerUser
	OwnerItem
)

func (o FieldOwner) String() string {
	switch o {
	case OwnerUser:
		return "user"
	case OwnerItem:
		return "item"
	default:
		return "interaction"
	}
}

// UnknownValue is the raw name registered at index zero of every sparse field
// vocabulary. Values unseen at training time encode to it at inference.
const UnknownValue = "__unknown__"

// DefaultMultiSeparator joins multiple values in a SparseMulti column.
const DefaultMultiSeparator = "|"

// DefaultMultiWidth caps the number of values encoded per SparseMulti cell.
const DefaultMultiWidth = 4

// Field describes one declared feature column. Sparse fields own a growing
// vocabulary; dense fields own frozen standardization statistics. The offset
// into the unified sparse space is assigned when a training build freezes.
type Field struct {
	Name        string
	Kind        FieldKind
	Owner       FieldOwner
	Column      int
	Width       int    // SparseMulti only
	Separator   string // SparseMulti only
	Standardize bool   // Dense only

	vocab  *base.Index // SparseSingle, SparseMulti
	mean   float32     // Dense, frozen over the training set
	stdDev float32     // Dense, frozen over the training set
	offset int32       // assigned on freeze
}

// NewSparseField declares a single-valued categorical column.
func NewSparseField(name string, column int, owner FieldOwner) *Field {
	field := &Field{
		Name:   name,
		Kind:   SparseSingle,
		Owner:  owner,
		Column: column,
		vocab:  base.NewIndex(),
	}
	field.vocab.AddNoCount(UnknownValue)
	return field
}

// NewMultiSparseField declares a multi-valued categorical column.
func NewMultiSparseField(name string, column int, owner FieldOwner, width int) *Field {
	if width <= 0 {
		width = DefaultMultiWidth
	}
	field := &Field{
		Name:      name,
		Kind:      SparseMulti,
		Owner:     owner,
		Column:    column,
		Width:     width,
		Separator: DefaultMultiSeparator,
		vocab:     base.NewIndex(),
	}
	field.vocab.AddNoCount(UnknownValue)
	return field
}

// NewDenseField declares a numeric column.
func NewDenseField(name string, column int, owner FieldOwner, standardize bool) *Field {
	return &Field{
		Name:        name,
		Kind:        Dense,
		Owner:       owner,
		Column:      column,
		Standardize: standardize,
	}
}

// Cardinality returns the vocabulary size of a sparse field, including the
// reserved unknown value.
func (f *Field) Cardinality() int32 {
	if f.Kind == Dense {
		return 0
	}
	return f.vocab.Len()
}

// Offset returns the field's offset into the unified sparse feature space.
// It is meaningful only after a training build has frozen the schema.
func (f *Field) Offset() int32 {
	return f.offset
}

// Mean returns the frozen mean of a dense field.
func (f *Field) Mean() float32 {
	return f.mean
}

// StdDev returns the frozen standard deviation of a dense field.
func (f *Field) StdDev() float32 {
	return f.stdDev
}

// Schema declares how table columns map to identifiers, the label and feature
// fields. The zero column layout is user, item, label at positions 0, 1, 2.
type Schema struct {
	UserColumn  int
	ItemColumn  int
	LabelColumn int
	TimeColumn  int // -1 when the table carries no timestamps
	Fields      []*Field
}

// NewSchema creates a Schema with the default positional layout and no
// feature columns.
func NewSchema() *Schema {
	return &Schema{
		UserColumn:  0,
		ItemColumn:  1,
		LabelColumn: 2,
		TimeColumn:  -1,
	}
}

// AddField appends a declared feature column.
func (s *Schema) AddField(field *Field) *Schema {
	s.Fields = append(s.Fields, field)
	return s
}

// Validate checks that declared columns do not collide: a column may carry at
// most one field, and no field may overlap the identifier or label columns.
func (s *Schema) Validate() error {
	used := map[int]string{
		s.UserColumn:  "user_col",
		s.ItemColumn:  "item_col",
		s.LabelColumn: "label_col",
	}
	if len(used) < 3 {
		return errors.Errorf("user, item and label columns must be distinct")
	}
	for _, field := range s.Fields {
		if owner, exist := used[field.Column]; exist {
			return errors.Errorf("column %d declared twice: %s and %s", field.Column, owner, field.Name)
		}
		used[field.Column] = field.Name
	}
	return nil
}

// SparseFields returns declared sparse fields in declaration order.
func (s *Schema) SparseFields() []*Field {
	fields := make([]*Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Kind != Dense {
			fields = append(fields, field)
		}
	}
	return fields
}

// DenseFields returns declared dense fields in declaration order.
func (s *Schema) DenseFields() []*Field {
	fields := make([]*Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Kind == Dense {
			fields = append(fields, field)
		}
	}
	return fields
}

// sparseFieldsOf returns sparse fields of the given owner in declaration
// order.
func (s *Schema) sparseFieldsOf(owner FieldOwner) []*Field {
	fields := make([]*Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Kind != Dense && field.Owner == owner {
			fields = append(fields, field)
		}
	}
	return fields
}

// denseFieldsOf returns dense fields of the given owner in declaration order.
func (s *Schema) denseFieldsOf(owner FieldOwner) []*Field {
	fields := make([]*Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Kind == Dense && field.Owner == owner {
			fields = append(fields, field)
		}
	}
	return fields
}

// maxColumn returns the highest column position any declared column uses.
func (s *Schema) maxColumn() int {
	maxCol := max(s.UserColumn, s.ItemColumn, s.LabelColumn, s.TimeColumn)
	for _, field := range s.Fields {
		maxCol = max(maxCol, field.Column)
	}
	return maxCol
}
