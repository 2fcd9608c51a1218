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

package model

import (
	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/tabrec-io/tabrec/base"
	"github.com/tabrec-io/tabrec/dataset"
)

// GlobalMean predicts the mean training label for every pair.
type GlobalMean struct {
	mean float32
}

// NewGlobalMean creates a GlobalMean baseline.
func NewGlobalMean() *GlobalMean {
	return new(GlobalMean)
}

// Fit computes the mean label.
func (m *GlobalMean) Fit(trainSet *dataset.Dataset) error {
	m.mean = trainSet.Info().GlobalMean()
	return nil
}

// InternalPredict returns the mean label regardless of the pair.
func (m *GlobalMean) InternalPredict(_, _ int32) float32 {
	return m.mean
}

// MostPopular scores items by their training interaction count, identically
// for every user.
type MostPopular struct {
	counts []float32
}

// NewMostPopular creates a MostPopular baseline.
func NewMostPopular() *MostPopular {
	return new(MostPopular)
}

// Fit snapshots item popularity.
func (m *MostPopular) Fit(trainSet *dataset.Dataset) error {
	info := trainSet.Info()
	m.counts = make([]float32, info.CountItems())
	for i := range m.counts {
		m.counts[i] = float32(info.ItemIndex.Count(int32(i)))
	}
	return nil
}

// InternalPredict returns the popularity of the item.
func (m *MostPopular) InternalPredict(_, itemIndex int32) float32 {
	if itemIndex < 0 || int(itemIndex) >= len(m.counts) {
		return 0
	}
	return m.counts[itemIndex]
}

// Baseline is the bias model score(u,i) = mean + b_u + b_i fitted by
// alternating least squares with L2 regularization.
type Baseline struct {
	mean      float32
	userBias  []float32
	itemBias  []float32
	reg       float32
	numEpochs int
}

// NewBaseline creates a Baseline with the given regularization and number of
// alternating passes.
func NewBaseline(reg float32, numEpochs int) *Baseline {
	if reg <= 0 {
		reg = 15
	}
	if numEpochs <= 0 {
		numEpochs = 10
	}
	return &Baseline{reg: reg, numEpochs: numEpochs}
}

// Fit estimates user and item biases.
func (m *Baseline) Fit(trainSet *dataset.Dataset) error {
	info := trainSet.Info()
	if trainSet.Count() == 0 {
		return errors.Errorf("cannot fit on an empty record set")
	}
	m.mean = info.GlobalMean()
	m.userBias = make([]float32, info.CountUsers())
	m.itemBias = make([]float32, info.CountItems())
	userCount := make([]float32, info.CountUsers())
	itemCount := make([]float32, info.CountItems())
	for i := 0; i < trainSet.Count(); i++ {
		userIndex, itemIndex := trainSet.GetIndex(i)
		if userIndex == base.NotId || itemIndex == base.NotId {
			continue
		}
		userCount[userIndex]++
		itemCount[itemIndex]++
	}
	for epoch := 0; epoch < m.numEpochs; epoch++ {
		// update item biases against fixed user biases
		itemSum := make([]float32, len(m.itemBias))
		for i := 0; i < trainSet.Count(); i++ {
			userIndex, itemIndex := trainSet.GetIndex(i)
			if userIndex == base.NotId || itemIndex == base.NotId {
				continue
			}
			itemSum[itemIndex] += trainSet.Label(i) - m.mean - m.userBias[userIndex]
		}
		for j := range m.itemBias {
			m.itemBias[j] = itemSum[j] / (m.reg + itemCount[j])
		}
		// update user biases against fixed item biases
		userSum := make([]float32, len(m.userBias))
		for i := 0; i < trainSet.Count(); i++ {
			userIndex, itemIndex := trainSet.GetIndex(i)
			if userIndex == base.NotId || itemIndex == base.NotId {
				continue
			}
			userSum[userIndex] += trainSet.Label(i) - m.mean - m.itemBias[itemIndex]
		}
		for j := range m.userBias {
			m.userBias[j] = userSum[j] / (m.reg + userCount[j])
		}
	}
	return nil
}

// InternalPredict returns mean + b_u + b_i.
func (m *Baseline) InternalPredict(userIndex, itemIndex int32) float32 {
	score := m.mean
	if userIndex >= 0 && int(userIndex) < len(m.userBias) {
		score += m.userBias[userIndex]
	}
	if itemIndex >= 0 && int(itemIndex) < len(m.itemBias) {
		score += m.itemBias[itemIndex]
	}
	return score
}

// RMSE returns the root-mean-square error of the predictor on a record set,
// skipping unresolved rows. It is a convenience for fitting diagnostics; the
// eval package is the real evaluator.
func RMSE(predictor Predictor, set *dataset.Dataset) float32 {
	sum, count := float32(0), float32(0)
	for i := 0; i < set.Count(); i++ {
		userIndex, itemIndex := set.GetIndex(i)
		if userIndex == base.NotId || itemIndex == base.NotId {
			continue
		}
		diff := set.Label(i) - predictor.InternalPredict(userIndex, itemIndex)
		sum += diff * diff
		count++
	}
	if count == 0 {
		return 0
	}
	return math32.Sqrt(sum / count)
}
