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

package base

// NotId represents an ID doesn't exist.
const NotId = int32(-1)

// Index manages the map between raw string IDs and dense indices. A raw ID is
// a user ID, item ID or categorical feature value. The dense index is the
// internal index optimized for faster parameter access and less memory usage.
// Indices are assigned in first-seen order and never reused. The index also
// counts the frequency of each ID, which feeds popularity statistics.
type Index struct {
	numbers map[string]int32 // raw ID -> dense index
	names   []string         // dense index -> raw ID
	counts  []int32          // dense index -> frequency
}

// NewIndex creates an Index.
func NewIndex() *Index {
	return &Index{
		numbers: make(map[string]int32),
		names:   make([]string, 0),
		counts:  make([]int32, 0),
	}
}

// Len returns the number of indexed IDs.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.names))
}

// Add adds an ID to the index if unseen and counts one occurrence. It returns
// the dense index of the ID.
func (idx *Index) Add(name string) int32 {
	if number, exist := idx.numbers[name]; exist {
		idx.counts[number]++
		return number
	}
	number := int32(len(idx.names))
	idx.numbers[name] = number
	idx.names = append(idx.names, name)
	idx.counts = append(idx.counts, 1)
	return number
}

// AddNoCount adds an ID to the index if unseen without counting an
// occurrence. It returns the dense index of the ID.
func (idx *Index) AddNoCount(name string) int32 {
	if number, exist := idx.numbers[name]; exist {
		return number
	}
	number := int32(len(idx.names))
	idx.numbers[name] = number
	idx.names = append(idx.names, name)
	idx.counts = append(idx.counts, 0)
	return number
}

// ToNumber converts a raw ID to a dense index. NotId is returned for unseen
// IDs. ToNumber never mutates the index.
func (idx *Index) ToNumber(name string) int32 {
	if number, exist := idx.numbers[name]; exist {
		return number
	}
	return NotId
}

// ToName converts a dense index to a raw ID. The result is the empty string
// and false if the index was never assigned.
func (idx *Index) ToName(number int32) (string, bool) {
	if number < 0 || int(number) >= len(idx.names) {
		return "", false
	}
	return idx.names[number], true
}

// Count returns the frequency of the given dense index.
func (idx *Index) Count(number int32) int32 {
	if number < 0 || int(number) >= len(idx.counts) {
		return 0
	}
	return idx.counts[number]
}

// Names returns all raw IDs in dense index order.
func (idx *Index) Names() []string {
	return idx.names
}
