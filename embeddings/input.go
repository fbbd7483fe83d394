// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package embeddings

import (
	"errors"

	"github.com/nlpodyssey/spago/mat"
)

// ErrInvalidInput is returned by Model.Forward when the input carries both,
// or neither, of the token ids and the precomputed token vectors.
var ErrInvalidInput = errors.New("embeddings: exactly one of token identifiers or token vectors must be supplied")

// Input is a rectangular batch of sequences to embed. Exactly one of
// TokenIDs and TokenVectors must be set; TokenTypeIDs and PositionIDs are
// optional and, when set, must have the same shape as the chosen base.
type Input struct {
	// TokenIDs are the token identifiers, one row per sequence.
	TokenIDs [][]int
	// TokenVectors are precomputed per-position embeddings, bypassing the
	// word table.
	TokenVectors [][]mat.Tensor
	// TokenTypeIDs mark the segment each position belongs to. When nil,
	// every position is taken to belong to segment zero.
	TokenTypeIDs [][]int
	// PositionIDs override the derived position ids. The values are used
	// as-is, padding semantics included.
	PositionIDs [][]int
}

// FromTokenIDs returns an Input carrying token identifiers.
func FromTokenIDs(ids [][]int) Input {
	return Input{TokenIDs: ids}
}

// FromTokenVectors returns an Input carrying precomputed token vectors.
func FromTokenVectors(vectors [][]mat.Tensor) Input {
	return Input{TokenVectors: vectors}
}

func (in Input) validate() error {
	if (in.TokenIDs == nil) == (in.TokenVectors == nil) {
		return ErrInvalidInput
	}
	return nil
}

func (in Input) batchSize() int {
	if in.TokenIDs != nil {
		return len(in.TokenIDs)
	}
	return len(in.TokenVectors)
}
