// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package roberta

import (
	"testing"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/roberta/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatTensor(data []float32, size ...int) *pytorch.Tensor {
	return &pytorch.Tensor{
		Size:   size,
		Source: &pytorch.FloatStorage{Data: data},
	}
}

func newTestConverter(t *testing.T, params paramsMap) *converter[float64] {
	t.Helper()
	c := newConverter[float64](Config{
		VocabSize:             3,
		HiddenSize:            2,
		MaxPositionEmbeddings: 4,
		TypeVocabSize:         1,
		HiddenDropoutProb:     0.1,
	}, "", "")
	c.params = params
	return c
}

func TestConvEmbeddingTable(t *testing.T) {
	c := newTestConverter(t, paramsMap{
		wordEmbeddingsParamName: floatTensor([]float32{1, 2, 3, 4, 5, 6}, 3, 2),
	})

	table, err := c.convEmbeddingTable(wordEmbeddingsParamName, 3)
	require.NoError(t, err)

	require.Len(t, table.Weights, 3)
	assert.Equal(t, []float64{3, 4}, table.Weights[1].Value().Data().F64())

	t.Run("row count mismatch", func(t *testing.T) {
		c := newTestConverter(t, paramsMap{
			wordEmbeddingsParamName: floatTensor([]float32{1, 2, 3, 4}, 2, 2),
		})
		_, err := c.convEmbeddingTable(wordEmbeddingsParamName, 3)
		assert.Error(t, err)
	})
}

func TestConvLayerNorm(t *testing.T) {
	c := newTestConverter(t, paramsMap{
		layerNormWeightParamName: floatTensor([]float32{0.5, 1.5}, 2),
		layerNormBiasParamName:   floatTensor([]float32{-1, 1}, 2),
	})

	require.NoError(t, c.convLayerNorm())

	ln := c.model.LayerNorm
	assert.Equal(t, []float64{0.5, 1.5}, ln.W.Value().Data().F64())
	assert.Equal(t, []float64{-1, 1}, ln.B.Value().Data().F64())
	assert.InDelta(t, embeddings.LayerNormEps, ln.Eps.Value().Data().F64()[0], 0)

	t.Run("missing parameter", func(t *testing.T) {
		c := newTestConverter(t, paramsMap{
			layerNormWeightParamName: floatTensor([]float32{0.5, 1.5}, 2),
		})
		assert.Error(t, c.convLayerNorm())
	})
}
