// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package embeddings

import (
	"testing"

	"github.com/nlpodyssey/spago/mat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onesVector(size int) mat.Tensor {
	return mat.NewDense[float64](mat.WithShape(size), mat.WithBacking(mat.CreateInitializedSlice[float64](size, 1)))
}

func TestDropoutIdentity(t *testing.T) {
	x := onesVector(8)

	t.Run("not training", func(t *testing.T) {
		out := NewDropout(0.5).Forward(false, x)
		require.Len(t, out, 1)
		assert.Equal(t, x, out[0])
	})

	t.Run("zero probability", func(t *testing.T) {
		out := NewDropout(0).Forward(true, x)
		require.Len(t, out, 1)
		assert.Equal(t, x, out[0])
	})
}

func TestDropoutMasking(t *testing.T) {
	const (
		p    = 0.4
		size = 20000
	)

	out := NewDropout(p).Forward(true, onesVector(size))
	require.Len(t, out, 1)
	data := out[0].Data().F64()
	require.Len(t, data, size)

	zeroed := 0
	for _, v := range data {
		if v == 0 {
			zeroed++
			continue
		}
		// Survivors are rescaled so the expected value is preserved.
		assert.InDelta(t, 1/(1-p), v, 1e-9)
	}

	assert.InDelta(t, p, float64(zeroed)/size, 0.02)
}
