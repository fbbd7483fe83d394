// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package embeddings implements the input embeddings of a RoBERTa-like
// transformer encoder: the sum of word, position and token-type lookups,
// followed by layer normalization and dropout.
package embeddings

import (
	"encoding/gob"

	"github.com/nlpodyssey/spago/ag"
	"github.com/nlpodyssey/spago/mat"
	"github.com/nlpodyssey/spago/mat/float"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/nn/embedding"
	"github.com/nlpodyssey/spago/nn/normalization/layernorm"
)

var _ nn.Model = &Model{}

const (
	// PaddingIdx is the index reserved for padding tokens, in both the
	// word and the position tables. Position ids derived from token ids
	// start right after it.
	PaddingIdx = 1

	// LayerNormEps is the normalization stability constant. It is pinned
	// to the value baked into published RoBERTa checkpoints.
	LayerNormEps = 1e-12
)

// Model implements the input embeddings module.
type Model struct {
	nn.Module
	WordEmbeddings      *embedding.Model
	PositionEmbeddings  *embedding.Model
	TokenTypeEmbeddings *embedding.Model
	LayerNorm           *layernorm.Model
	Dropout             *Dropout
	Config              Config
}

// Config is the configuration of the input embeddings module.
type Config struct {
	VocabSize             int
	MaxPositionEmbeddings int
	TypeVocabSize         int
	HiddenSize            int
	HiddenDropoutProb     float64
}

func init() {
	gob.Register(&Model{})
}

// New returns a new input embeddings module.
func New[T float.DType](c Config) *Model {
	return &Model{
		Config:              c,
		WordEmbeddings:      embedding.New[T](c.VocabSize, c.HiddenSize),
		PositionEmbeddings:  embedding.New[T](c.MaxPositionEmbeddings, c.HiddenSize),
		TokenTypeEmbeddings: embedding.New[T](c.TypeVocabSize, c.HiddenSize),
		LayerNorm:           layernorm.New[T](c.HiddenSize, LayerNormEps),
		Dropout:             NewDropout(c.HiddenDropoutProb),
	}
}

// Forward encodes a batch of sequences into one hidden-size vector per
// position. The base embedding comes from the word table when the input
// carries token ids, or from the precomputed vectors otherwise; position
// and token-type embeddings are added on top, then the result is
// layer-normalized and, in training mode, passed through dropout.
//
// Shape, index-bound and broadcast problems are the caller's: they surface
// from the underlying lookups and are returned as-is.
//
// Forward only reads the parameters, so concurrent calls on the same model
// are safe as long as no training process is mutating the tables.
func (m *Model) Forward(input Input, training bool) ([][]mat.Tensor, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	out := make([][]mat.Tensor, input.batchSize())
	for r := range out {
		row, err := m.forwardRow(input, r, training)
		if err != nil {
			return nil, err
		}
		out[r] = row
	}
	return out, nil
}

func (m *Model) forwardRow(input Input, r int, training bool) ([]mat.Tensor, error) {
	base, err := m.baseEmbeddings(input, r)
	if err != nil {
		return nil, err
	}
	seqLen := len(base)

	positionEmbeddings, err := m.PositionEmbeddings.Encode(m.resolvePositionIDs(input, r, seqLen))
	if err != nil {
		return nil, err
	}

	tokenTypeEmbeddings, err := m.TokenTypeEmbeddings.Encode(resolveTokenTypeIDs(input, r, seqLen))
	if err != nil {
		return nil, err
	}

	summed := make([]mat.Tensor, seqLen)
	for i := range summed {
		summed[i] = ag.Add(ag.Add(base[i], positionEmbeddings[i]), tokenTypeEmbeddings[i])
	}

	return m.Dropout.Forward(training, m.LayerNorm.Forward(summed...)...), nil
}

// baseEmbeddings resolves the base embedding of one row of the batch.
func (m *Model) baseEmbeddings(input Input, r int) ([]mat.Tensor, error) {
	if input.TokenIDs != nil {
		return m.WordEmbeddings.Encode(input.TokenIDs[r])
	}
	return input.TokenVectors[r], nil
}

// resolvePositionIDs returns the explicit position ids when the caller
// supplied them, otherwise derives them with the scheme appropriate to the
// input variant.
func (m *Model) resolvePositionIDs(input Input, r, seqLen int) []int {
	if input.PositionIDs != nil {
		return input.PositionIDs[r]
	}
	if input.TokenIDs != nil {
		return positionIDsFromTokenIDs(input.TokenIDs[r])
	}
	return sequentialPositionIDs(seqLen)
}

func resolveTokenTypeIDs(input Input, r, seqLen int) []int {
	if input.TokenTypeIDs != nil {
		return input.TokenTypeIDs[r]
	}
	return make([]int, seqLen)
}
