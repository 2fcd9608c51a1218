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

// Dataset is an immutable record set produced by the Builder. Rows are kept
// in build order. Each row holds the user and item indices, the label,
// interaction-level feature tensors and a negative flag. Entity-level
// features live in the shared Info and are joined at access time.
type Dataset struct {
	info *Info

	users  []int32
	items  []int32
	labels []float32

	// interaction-owned feature tensors, row aligned. Sparse indices are
	// field-local, dense values raw; both are resolved against the schema at
	// access time.
	ctxLocals [][]int32
	ctxRaw    [][]float32

	negatives []bool

	// positive items per user index
	userFeedback [][]int32

	positiveCount int
	negativeCount int
}

// Info returns the shared dataset descriptor.
func (d *Dataset) Info() *Info {
	return d.info
}

// Count returns the number of records.
func (d *Dataset) Count() int {
	return len(d.users)
}

// GetIndex returns the user and item indices of the i-th record. Either may
// be NotId in eval and test sets when the identifier was unseen at training
// time.
func (d *Dataset) GetIndex(i int) (int32, int32) {
	return d.users[i], d.items[i]
}

// Label returns the label of the i-th record.
func (d *Dataset) Label(i int) float32 {
	return d.labels[i]
}

// IsNegative reports whether the i-th record is a synthesized negative.
func (d *Dataset) IsNegative(i int) bool {
	if d.negatives == nil {
		return false
	}
	return d.negatives[i]
}

// PositiveCount returns the number of positive records.
func (d *Dataset) PositiveCount() int {
	return d.positiveCount
}

// NegativeCount returns the number of synthesized negative records.
func (d *Dataset) NegativeCount() int {
	return d.negativeCount
}

// UserFeedback returns the positive item indices of a user within this record
// set.
func (d *Dataset) UserFeedback(userIndex int32) []int32 {
	if userIndex < 0 || int(userIndex) >= len(d.userFeedback) {
		return nil
	}
	return d.userFeedback[userIndex]
}

// Get assembles the i-th record into unified feature index and value tensors
// for the model backend:
//
//	| user | item | user features | item features | context features |
//
// followed by dense slots in schema declaration order. The record must be
// resolved: rows holding NotId are routed through cold-start handling before
// the backend is consulted.
func (d *Dataset) Get(i int) (features []int32, values []float32, target float32) {
	userIndex, itemIndex := d.users[i], d.items[i]
	// user and item blocks
	features = append(features, userIndex)
	values = append(values, 1)
	features = append(features, int32(d.info.CountUsers())+itemIndex)
	values = append(values, 1)
	// entity-owned sparse features
	for _, feature := range d.info.UserFeatures(userIndex) {
		features = append(features, feature)
		values = append(values, 1)
	}
	for _, feature := range d.info.ItemFeatures(itemIndex) {
		features = append(features, feature)
		values = append(values, 1)
	}
	// interaction-owned sparse features
	if d.ctxLocals != nil {
		for _, feature := range d.info.sparseGlobals(OwnerInteraction, d.ctxLocals[i]) {
			features = append(features, feature)
			values = append(values, 1)
		}
	}
	// dense slots
	userValues, itemValues := d.info.UserValues(userIndex), d.info.ItemValues(itemIndex)
	var ctxValues []float32
	if d.ctxRaw != nil {
		ctxValues = d.info.denseTransformed(OwnerInteraction, d.ctxRaw[i])
	}
	var userAt, itemAt, ctxAt int
	for _, field := range d.info.Schema().DenseFields() {
		var value float32
		switch field.Owner {
		case OwnerUser:
			value = userValues[userAt]
			userAt++
		case OwnerItem:
			value = itemValues[itemAt]
			itemAt++
		default:
			value = ctxValues[ctxAt]
			ctxAt++
		}
		features = append(features, field.offset)
		values = append(values, value)
	}
	return features, values, d.labels[i]
}
