// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package roberta

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/nlpodyssey/roberta/embeddings"
	"github.com/nlpodyssey/spago/nn/embedding"
	"github.com/nlpodyssey/spago/nn/normalization/layernorm"
)

// gobEncode serializes the model as a sequence of gob chunks, one per
// parameter group, so that decoding can pre-allocate the right types.
func gobEncode(obj *embeddings.Model, w io.Writer) error {
	bw := bufio.NewWriter(w)
	encoder := gob.NewEncoder(bw)

	for _, chunk := range getChunksForGobEncoding(obj) {
		if err := encoder.Encode(chunk); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func getChunksForGobEncoding(obj *embeddings.Model) []interface{} {
	return []interface{}{
		obj.Config,
		obj.WordEmbeddings,
		obj.PositionEmbeddings,
		obj.TokenTypeEmbeddings,
		obj.LayerNorm,
	}
}

// loadFromFile uses Gob to deserialize objects files to memory.
// See gobDecoding for further details.
func loadFromFile(filename string) (_ *embeddings.Model, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return gobDecoding(f)
}

func gobDecoding(r io.Reader) (*embeddings.Model, error) {
	obj := &embeddings.Model{
		WordEmbeddings:      &embedding.Model{},
		PositionEmbeddings:  &embedding.Model{},
		TokenTypeEmbeddings: &embedding.Model{},
		LayerNorm:           &layernorm.Model{},
	}

	br := bufio.NewReader(r)
	decoder := gob.NewDecoder(br)

	if err := decoder.Decode(&obj.Config); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&obj.WordEmbeddings); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&obj.PositionEmbeddings); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&obj.TokenTypeEmbeddings); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&obj.LayerNorm); err != nil {
		return nil, err
	}

	obj.Dropout = embeddings.NewDropout(obj.Config.HiddenDropoutProb)
	return obj, nil
}
