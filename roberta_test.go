// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package roberta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nlpodyssey/roberta/embeddings"
	"github.com/nlpodyssey/spago/mat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(filepath.Join("testdata", "config.json"))
	require.NoError(t, err)

	assert.Equal(t, Config{
		VocabSize:             50265,
		HiddenSize:            768,
		MaxPositionEmbeddings: 514,
		TypeVocabSize:         1,
		HiddenDropoutProb:     0.1,
		PadTokenID:            1,
	}, config)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join("testdata", "no-such-config.json"))
	assert.Error(t, err)
}

func TestDumpAndLoad(t *testing.T) {
	original := embeddings.New[float32](embeddings.Config{
		VocabSize:             10,
		MaxPositionEmbeddings: 12,
		TypeVocabSize:         2,
		HiddenSize:            4,
		HiddenDropoutProb:     0.1,
	})
	original.WordEmbeddings.Weights[3].ReplaceValue(mat.NewDense[float32](
		mat.WithShape(4),
		mat.WithBacking([]float32{0.1, -0.2, 0.3, -0.4}),
	))

	filename := filepath.Join(t.TempDir(), DefaultOutputFilename)
	require.NoError(t, Dump(original, filename))

	loaded, err := loadFromFile(filename)
	require.NoError(t, err)

	assert.Equal(t, original.Config, loaded.Config)
	require.NotNil(t, loaded.Dropout)
	assert.Equal(t, 0.1, loaded.Dropout.P)
	assert.Equal(t,
		original.WordEmbeddings.Weights[3].Value().Data().F64(),
		loaded.WordEmbeddings.Weights[3].Value().Data().F64(),
	)

	encoded, err := loaded.Forward(embeddings.FromTokenIDs([][]int{{3, 5, 1}}), false)
	require.NoError(t, err)
	require.Len(t, encoded, 1)
	assert.Len(t, encoded[0], 3)
}

func TestLoadMissingModelDir(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadCorruptModelFile(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, DefaultOutputFilename)
	require.NoError(t, os.WriteFile(filename, []byte("not a model"), 0o644))

	_, err := loadFromFile(filename)
	assert.Error(t, err)
}
