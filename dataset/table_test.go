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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	err := os.WriteFile(path, []byte("user,item,rating\nu1,i1,5\n\nu2,i2,3\n"), 0o644)
	require.NoError(t, err)

	table, err := ReadTable(path, ",", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "item", "rating"}, table.Header)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"u1", "i1", "5"}, table.Rows[0])

	column, ok := table.Column("rating")
	assert.True(t, ok)
	assert.Equal(t, 2, column)
	_, ok = table.Column("timestamp")
	assert.False(t, ok)
}

func TestReadTableNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u.data")
	err := os.WriteFile(path, []byte("196\t242\t3\t881250949\n186\t302\t3\t891717742\n"), 0o644)
	require.NoError(t, err)

	table, err := ReadTable(path, "\t", false)
	require.NoError(t, err)
	assert.Nil(t, table.Header)
	assert.Equal(t, 2, table.Len())

	_, err = ReadTable(filepath.Join(t.TempDir(), "missing.csv"), ",", false)
	assert.Error(t, err)
}
