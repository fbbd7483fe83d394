// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionIDsFromTokenIDs(t *testing.T) {
	t.Run("trailing padding collapses onto the padding index", func(t *testing.T) {
		assert.Equal(t, []int{2, 3, 1, 1}, positionIDsFromTokenIDs([]int{5, 7, 1, 1}))
	})

	t.Run("counting resumes after interior padding", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 3, 1, 4}, positionIDsFromTokenIDs([]int{1, 5, 7, 1, 9}))
	})

	t.Run("all padding", func(t *testing.T) {
		assert.Equal(t, []int{1, 1, 1}, positionIDsFromTokenIDs([]int{1, 1, 1}))
	})

	t.Run("empty sequence", func(t *testing.T) {
		assert.Empty(t, positionIDsFromTokenIDs([]int{}))
	})
}

func TestSequentialPositionIDs(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4}, sequentialPositionIDs(3))
	assert.Empty(t, sequentialPositionIDs(0))
}
