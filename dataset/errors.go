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

import "github.com/juju/errors"

var (
	// ErrMalformedInput reports a missing or non-finite value in a declared
	// column. A build that hits it aborts and produces no dataset.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnknownEntity reports a user or item ID absent from the registry at
	// inference time. It is recoverable through cold-start policies.
	ErrUnknownEntity = errors.New("unknown entity")
)
