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

// Package model declares the contract between the data core and pluggable
// recommendation backends, plus a few closed-form baselines. A backend
// consumes the index space and tensors produced by the dataset package and
// returns raw scores; everything else (cold start, ranking, evaluation) is
// handled outside of it.
package model

import "github.com/tabrec-io/tabrec/dataset"

// Predictor scores a (user, item) pair by internal indices. Implementations
// must be safe for concurrent use after fitting.
type Predictor interface {
	// InternalPredict returns the raw score of an item for a user. Both
	// indices are valid against the Info the predictor was fitted on.
	InternalPredict(userIndex, itemIndex int32) float32
}

// FeaturePredictor scores a record encoded into the unified feature space,
// for backends that consume side features (factorization machine style).
type FeaturePredictor interface {
	Predictor
	// InternalPredictFeatures returns the raw score of an encoded record.
	InternalPredictFeatures(features []int32, values []float32) float32
}

// Fitter is a backend that can be trained on a record set.
type Fitter interface {
	Fit(trainSet *dataset.Dataset) error
}
