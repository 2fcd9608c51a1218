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
	"sort"

	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
)

// Info is the shared descriptor of a training session: the user and item
// registries, the feature schema and derived corpus statistics. It is mutated
// only by the Builder; once a training build freezes it, every read path
// (lookup, encode, predict, recommend) is safe for concurrent use.
type Info struct {
	UserIndex *base.Index
	ItemIndex *base.Index

	schema *Schema

	// per-entity feature tensors keyed by entity index. Sparse indices are
	// stored field-local and dense values raw, so offset reassignment and
	// re-standardization across incremental retrains cannot corrupt them.
	userLocals [][]int32
	itemLocals [][]int32
	userRaw    [][]float32
	itemRaw    [][]float32

	numInteractions int
	globalMean      float32
	popularItems    []int32
	numFeatures     int32
}

// NewInfo creates an empty Info bound to a schema.
func NewInfo(schema *Schema) *Info {
	return &Info{
		UserIndex: base.NewIndex(),
		ItemIndex: base.NewIndex(),
		schema:    schema,
	}
}

// Schema returns the declared feature schema.
func (info *Info) Schema() *Schema {
	return info.schema
}

// CountUsers returns the number of registered users.
func (info *Info) CountUsers() int {
	return int(info.UserIndex.Len())
}

// CountItems returns the number of registered items.
func (info *Info) CountItems() int {
	return int(info.ItemIndex.Len())
}

// CountInteractions returns the number of training interactions observed.
func (info *Info) CountInteractions() int {
	return info.numInteractions
}

// Sparsity returns 1 - interactions/(users*items).
func (info *Info) Sparsity() float64 {
	users, items := info.CountUsers(), info.CountItems()
	if users == 0 || items == 0 {
		return 1
	}
	return 1 - float64(info.numInteractions)/(float64(users)*float64(items))
}

// GlobalMean returns the mean training label, frozen at training time. It is
// the fallback score of the average cold-start policy.
func (info *Info) GlobalMean() float32 {
	return info.globalMean
}

// NumFeatures returns the size of the unified feature space:
// |user|item|sparse fields|dense fields|.
func (info *Info) NumFeatures() int32 {
	return info.numFeatures
}

// LookupUser resolves a raw user ID without mutating the registry.
func (info *Info) LookupUser(userId string) (int32, error) {
	if number := info.UserIndex.ToNumber(userId); number != base.NotId {
		return number, nil
	}
	return base.NotId, errors.Annotatef(ErrUnknownEntity, "user %q", userId)
}

// LookupItem resolves a raw item ID without mutating the registry.
func (info *Info) LookupItem(itemId string) (int32, error) {
	if number := info.ItemIndex.ToNumber(itemId); number != base.NotId {
		return number, nil
	}
	return base.NotId, errors.Annotatef(ErrUnknownEntity, "item %q", itemId)
}

// UserName translates a user index back to the raw ID.
func (info *Info) UserName(userIndex int32) (string, bool) {
	return info.UserIndex.ToName(userIndex)
}

// ItemName translates an item index back to the raw ID.
func (info *Info) ItemName(itemIndex int32) (string, bool) {
	return info.ItemIndex.ToName(itemIndex)
}

// PopularItems returns the n most interacted item indices, frozen at training
// time. Ties are broken by ascending item index so the ranking is stable.
func (info *Info) PopularItems(n int) []int32 {
	if n > len(info.popularItems) {
		n = len(info.popularItems)
	}
	return info.popularItems[:n]
}

// UserFeatures returns the unified sparse feature indices of a user.
func (info *Info) UserFeatures(userIndex int32) []int32 {
	if userIndex < 0 || int(userIndex) >= len(info.userLocals) {
		return nil
	}
	return info.sparseGlobals(OwnerUser, info.userLocals[userIndex])
}

// ItemFeatures returns the unified sparse feature indices of an item.
func (info *Info) ItemFeatures(itemIndex int32) []int32 {
	if itemIndex < 0 || int(itemIndex) >= len(info.itemLocals) {
		return nil
	}
	return info.sparseGlobals(OwnerItem, info.itemLocals[itemIndex])
}

// UserValues returns the standardized dense feature values of a user.
func (info *Info) UserValues(userIndex int32) []float32 {
	if userIndex < 0 || int(userIndex) >= len(info.userRaw) {
		return nil
	}
	return info.denseTransformed(OwnerUser, info.userRaw[userIndex])
}

// ItemValues returns the standardized dense feature values of an item.
func (info *Info) ItemValues(itemIndex int32) []float32 {
	if itemIndex < 0 || int(itemIndex) >= len(info.itemRaw) {
		return nil
	}
	return info.denseTransformed(OwnerItem, info.itemRaw[itemIndex])
}

// sparseGlobals converts field-local indices of one owner into the unified
// feature space. Locals are laid out per field in declaration order, each
// field occupying its arity of slots.
func (info *Info) sparseGlobals(owner FieldOwner, locals []int32) []int32 {
	if locals == nil {
		return nil
	}
	globals := make([]int32, 0, len(locals))
	at := 0
	for _, field := range info.schema.sparseFieldsOf(owner) {
		for k := 0; k < field.arity() && at < len(locals); k++ {
			globals = append(globals, field.offset+locals[at])
			at++
		}
	}
	return globals
}

// denseTransformed applies the frozen standardization of one owner's dense
// fields to raw values.
func (info *Info) denseTransformed(owner FieldOwner, raw []float32) []float32 {
	if raw == nil {
		return nil
	}
	values := make([]float32, len(raw))
	for i, field := range info.schema.denseFieldsOf(owner) {
		if i >= len(raw) {
			break
		}
		values[i] = field.transform(raw[i])
	}
	return values
}

// setUserFeatures records the entity-level tensors of a user, growing the
// tables as new indices appear. Builder only.
func (info *Info) setUserFeatures(userIndex int32, locals []int32, raw []float32) {
	for int(userIndex) >= len(info.userLocals) {
		info.userLocals = append(info.userLocals, nil)
		info.userRaw = append(info.userRaw, nil)
	}
	info.userLocals[userIndex] = locals
	info.userRaw[userIndex] = raw
}

// setItemFeatures records the entity-level tensors of an item. Builder only.
func (info *Info) setItemFeatures(itemIndex int32, locals []int32, raw []float32) {
	for int(itemIndex) >= len(info.itemLocals) {
		info.itemLocals = append(info.itemLocals, nil)
		info.itemRaw = append(info.itemRaw, nil)
	}
	info.itemLocals[itemIndex] = locals
	info.itemRaw[itemIndex] = raw
}

// freeze assigns feature offsets, the popularity ranking and the unified
// space size. Called by the builder at the end of a training build; the
// caller is the single writer.
func (info *Info) freeze(globalMean float32, numInteractions int) {
	info.globalMean = globalMean
	info.numInteractions = numInteractions
	// offset layout: | user | item | sparse fields | dense fields |
	offset := int32(info.CountUsers() + info.CountItems())
	for _, field := range info.schema.SparseFields() {
		field.offset = offset
		offset += field.Cardinality()
	}
	for _, field := range info.schema.DenseFields() {
		field.offset = offset
		offset++
	}
	info.numFeatures = offset
	// popularity ranking: frequency descending, item index ascending
	info.popularItems = make([]int32, info.CountItems())
	for i := range info.popularItems {
		info.popularItems[i] = int32(i)
	}
	sort.SliceStable(info.popularItems, func(i, j int) bool {
		a, b := info.popularItems[i], info.popularItems[j]
		if info.ItemIndex.Count(a) != info.ItemIndex.Count(b) {
			return info.ItemIndex.Count(a) > info.ItemIndex.Count(b)
		}
		return a < b
	})
}

// String formats a human-readable summary of the corpus.
func (info *Info) String() string {
	return fmt.Sprintf("n_users: %d, n_items: %d, data density: %.4f %%",
		info.CountUsers(), info.CountItems(), (1-info.Sparsity())*100)
}
