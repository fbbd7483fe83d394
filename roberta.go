// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package roberta loads, converts and persists the input-embeddings module
// of RoBERTa-like models.
package roberta

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nlpodyssey/roberta/embeddings"
)

const (
	// DefaultConfigFilename is the name of the model configuration file.
	DefaultConfigFilename = "config.json"
	// DefaultPyModelFilename is the name of the input torch model file.
	DefaultPyModelFilename = "pytorch_model.bin"
	// DefaultOutputFilename is the name of the native model file.
	DefaultOutputFilename = "spago_model.bin"
)

// Load loads a converted model from the given directory.
func Load(modelDir string) (*embeddings.Model, error) {
	m, err := loadFromFile(filepath.Join(modelDir, DefaultOutputFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("unable to find the model file in %q: convert the checkpoint before loading", modelDir)
		}
		return nil, err
	}
	return m, nil
}

// Dump saves the model to a file.
// See gobEncode for further details.
func Dump(obj *embeddings.Model, filename string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to open model dump file %q for writing: %w", filename, err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = fmt.Errorf("failed to close model dump file %q: %w", filename, e)
		}
	}()
	if err = gobEncode(obj, f); err != nil {
		return fmt.Errorf("failed to encode model dump: %w", err)
	}
	return nil
}
