// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package embeddings

// positionIDsFromTokenIDs derives position ids from token ids, skipping
// padding tokens. Every padding token is assigned PaddingIdx itself, while
// real tokens are numbered PaddingIdx+1, PaddingIdx+2, ... in order of
// appearance; the count does not reset across interior padding.
func positionIDsFromTokenIDs(tokenIDs []int) []int {
	positions := make([]int, len(tokenIDs))
	count := 0
	for i, id := range tokenIDs {
		if id == PaddingIdx {
			positions[i] = PaddingIdx
			continue
		}
		count++
		positions[i] = count + PaddingIdx
	}
	return positions
}

// sequentialPositionIDs produces PaddingIdx+1, PaddingIdx+2, ... for a
// sequence of the given length. It is used when only precomputed vectors
// are available: with no discrete ids to compare against PaddingIdx, no
// padding-awareness is possible.
func sequentialPositionIDs(seqLen int) []int {
	positions := make([]int, seqLen)
	for i := range positions {
		positions[i] = PaddingIdx + 1 + i
	}
	return positions
}
