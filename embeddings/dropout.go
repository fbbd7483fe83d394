// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package embeddings

import (
	"encoding/gob"

	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/mat"
	"github.com/nlpodyssey/spago/mat/rand"
)

// Dropout zeroes elements independently with probability P and rescales
// the survivors by 1/(1-P). It is active only when the training flag is
// set; otherwise it is the identity.
type Dropout struct {
	P float64
}

func init() {
	gob.Register(&Dropout{})
}

// NewDropout returns a new dropout step with the given drop probability.
func NewDropout(p float64) *Dropout {
	return &Dropout{P: p}
}

// Forward applies dropout to each input. When training is false, or P is
// zero, the inputs are returned unchanged.
func (m *Dropout) Forward(training bool, xs ...mat.Tensor) []mat.Tensor {
	if !training || m.P == 0 {
		return xs
	}
	out := make([]mat.Tensor, len(xs))
	for i, x := range xs {
		out[i] = ag.Prod(x, m.mask(x.Size()))
	}
	return out
}

// mask draws a fresh inverted-dropout mask: 0 with probability P,
// 1/(1-P) otherwise.
func (m *Dropout) mask(size int) mat.Tensor {
	keepScale := 1.0 / (1.0 - m.P)
	data := make([]float64, size)
	for i := range data {
		if rand.Float[float64]() >= m.P {
			data[i] = keepScale
		}
	}
	return mat.NewDense[float64](mat.WithShape(size), mat.WithBacking(data))
}
