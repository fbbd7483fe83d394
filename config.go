// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package roberta

import (
	"encoding/json"
	"os"
)

// Config is the model configuration, matching the field names of the
// "config.json" file shipped with compatible pretrained checkpoints.
type Config struct {
	// VocabSize is the size of the word-embeddings table.
	VocabSize int `json:"vocab_size"`
	// HiddenSize is the dimensionality of the embedding vectors.
	HiddenSize int `json:"hidden_size"`
	// MaxPositionEmbeddings is the size of the position-embeddings table.
	// It accounts for the positions reserved for padding, so it exceeds
	// the longest usable sequence by PaddingIdx+1.
	MaxPositionEmbeddings int `json:"max_position_embeddings"`
	// TypeVocabSize is the number of distinct token-type (segment) ids.
	TypeVocabSize int `json:"type_vocab_size"`
	// HiddenDropoutProb is the dropout probability applied to the summed
	// and normalized embeddings during training.
	HiddenDropoutProb float64 `json:"hidden_dropout_prob"`
	// PadTokenID is reported by checkpoint configurations; the embeddings
	// module pins the padding index to 1 regardless, as the published
	// weights it must stay compatible with do.
	PadTokenID int `json:"pad_token_id"`
}

// LoadConfig loads the model configuration from a JSON file.
func LoadConfig(filePath string) (Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	jsonDecoder := json.NewDecoder(file)
	if err := jsonDecoder.Decode(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}
