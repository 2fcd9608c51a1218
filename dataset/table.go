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
	"bufio"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base/log"
	"go.uber.org/zap"
)

// Table is a raw delimited interaction table held in memory. It is the input
// of splitters and builders and is never mutated by either.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable loads a delimited text file. The expected layout is:
//
//	[optional header]
//	<userId 1> <sep> <itemId 1> <sep> <label 1> <sep> <extras>
//	<userId 2> <sep> <itemId 2> <sep> <label 2> <sep> <extras>
//	...
//
// For example, the `u.data` table from MovieLens 100K is:
//
//	196\t242\t3\t881250949
//	186\t302\t3\t891717742
func ReadTable(path, sep string, hasHeader bool) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	table := new(Table)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, sep)
		if hasHeader && table.Header == nil && len(table.Rows) == 0 {
			table.Header = fields
			continue
		}
		table.Rows = append(table.Rows, fields)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("read table",
		zap.String("path", path),
		zap.Int("num_rows", len(table.Rows)))
	return table, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column resolves a header name to a column position.
func (t *Table) Column(name string) (int, bool) {
	for i, header := range t.Header {
		if header == name {
			return i, true
		}
	}
	return 0, false
}

// subset creates a table view holding the selected rows in the given order.
func (t *Table) subset(indices []int) *Table {
	rows := make([][]string, 0, len(indices))
	for _, i := range indices {
		rows = append(rows, t.Rows[i])
	}
	return &Table{Header: t.Header, Rows: rows}
}
