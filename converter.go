// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package roberta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/nlpodyssey/roberta/embeddings"
	"github.com/nlpodyssey/spago/mat"
	"github.com/nlpodyssey/spago/mat/float"
	"github.com/nlpodyssey/spago/nn"
	"github.com/nlpodyssey/spago/nn/embedding"
	"github.com/nlpodyssey/spago/nn/normalization/layernorm"
	"github.com/rs/zerolog/log"
)

// Canonical parameter names within the checkpoint's "embeddings." group.
// These must be preserved exactly for interoperability with pretrained
// weight files.
const (
	wordEmbeddingsParamName      = "word_embeddings.weight"
	positionEmbeddingsParamName  = "position_embeddings.weight"
	tokenTypeEmbeddingsParamName = "token_type_embeddings.weight"
	layerNormWeightParamName     = "LayerNorm.weight"
	layerNormBiasParamName       = "LayerNorm.bias"
)

type ConverterConfig struct {
	// The path to the directory where the models will be read from and written to.
	ModelDir string
	// The path to the input model file (default "pytorch_model.bin")
	PyModelFilename string
	// The path to the output model file (default "spago_model.bin")
	GoModelFilename string
	// If true, overwrite the model file if it already exists (default "false")
	OverwriteIfExist bool
}

// ConvertPickledModel converts the input-embeddings parameters of a PyTorch
// checkpoint to a native model. It expects a configuration file
// "config.json" in the same directory as the model file containing the
// model configuration.
func ConvertPickledModel[T float.DType](config ConverterConfig) error {
	if config.PyModelFilename == "" {
		config.PyModelFilename = DefaultPyModelFilename
	}
	if config.GoModelFilename == "" {
		config.GoModelFilename = DefaultOutputFilename
	}

	outputFilename := filepath.Join(config.ModelDir, config.GoModelFilename)

	if !config.OverwriteIfExist && fileExists(outputFilename) {
		log.Debug().Str("model", outputFilename).Msg("Model file already exists, skipping conversion")
		return nil
	}

	configFilename := filepath.Join(config.ModelDir, DefaultConfigFilename)
	modelConfig, err := LoadConfig(configFilename)
	if err != nil {
		return fmt.Errorf("failed to load config file %q: %w", configFilename, err)
	}

	inFilename := filepath.Join(config.ModelDir, config.PyModelFilename)
	conv := newConverter[T](modelConfig, inFilename, outputFilename)
	if err = conv.run(); err != nil {
		return fmt.Errorf("model conversion failed: %w", err)
	}
	return nil
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

type converter[T float.DType] struct {
	config      Config
	model       *embeddings.Model
	inFilename  string
	outFilename string
	params      paramsMap
}

func newConverter[T float.DType](conf Config, inFilename, outFilename string) *converter[T] {
	embConfig := embeddings.Config{
		VocabSize:             conf.VocabSize,
		MaxPositionEmbeddings: conf.MaxPositionEmbeddings,
		TypeVocabSize:         conf.TypeVocabSize,
		HiddenSize:            conf.HiddenSize,
		HiddenDropoutProb:     conf.HiddenDropoutProb,
	}
	return &converter[T]{
		config: conf,
		model: &embeddings.Model{
			Config:  embConfig,
			Dropout: embeddings.NewDropout(embConfig.HiddenDropoutProb),
		},
		inFilename:  inFilename,
		outFilename: outFilename,
	}
}

func (c *converter[T]) run() error {
	funcs := []func() error{
		c.loadTorchModelParams,
		c.convWordEmbeddings,
		c.convPositionEmbeddings,
		c.convTokenTypeEmbeddings,
		c.convLayerNorm,
		c.dumpModel,
	}
	for _, fn := range funcs {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter[T]) dumpModel() error {
	return Dump(c.model, c.outFilename)
}

func (c *converter[T]) convWordEmbeddings() (err error) {
	c.model.WordEmbeddings, err = c.convEmbeddingTable(wordEmbeddingsParamName, c.config.VocabSize)
	if err != nil {
		err = fmt.Errorf("failed to convert word embeddings: %w", err)
	}
	return
}

func (c *converter[T]) convPositionEmbeddings() (err error) {
	c.model.PositionEmbeddings, err = c.convEmbeddingTable(positionEmbeddingsParamName, c.config.MaxPositionEmbeddings)
	if err != nil {
		err = fmt.Errorf("failed to convert position embeddings: %w", err)
	}
	return
}

func (c *converter[T]) convTokenTypeEmbeddings() (err error) {
	c.model.TokenTypeEmbeddings, err = c.convEmbeddingTable(tokenTypeEmbeddingsParamName, c.config.TypeVocabSize)
	if err != nil {
		err = fmt.Errorf("failed to convert token-type embeddings: %w", err)
	}
	return
}

func (c *converter[T]) convEmbeddingTable(name string, expectedRows int) (*embedding.Model, error) {
	weight, err := c.params.fetch(name)
	if err != nil {
		return nil, err
	}

	vecs, err := c.tensorToVectors(weight)
	if err != nil {
		return nil, err
	}

	if len(vecs) != expectedRows {
		return nil, fmt.Errorf("expected %d embedding vectors, actual %d", expectedRows, len(vecs))
	}
	if size := vecs[0].Size(); size != c.config.HiddenSize {
		return nil, fmt.Errorf("expected embedding vectors to match hidden size %d, actual %d", c.config.HiddenSize, size)
	}

	table := embedding.New[T](len(vecs), c.config.HiddenSize)
	for i, vec := range vecs {
		table.Weights[i].ReplaceValue(vec)
	}
	return table, nil
}

func (c *converter[T]) convLayerNorm() error {
	w, err := c.fetchParamToVector(layerNormWeightParamName, c.config.HiddenSize)
	if err != nil {
		return fmt.Errorf("failed to convert layer-norm weight: %w", err)
	}

	b, err := c.fetchParamToVector(layerNormBiasParamName, c.config.HiddenSize)
	if err != nil {
		return fmt.Errorf("failed to convert layer-norm bias: %w", err)
	}

	c.model.LayerNorm = &layernorm.Model{
		W:   nn.NewParam(w),
		B:   nn.NewParam(b),
		Eps: nn.Buf(mat.Scalar[T](T(embeddings.LayerNormEps))),
	}
	return nil
}

func (c *converter[T]) loadTorchModelParams() error {
	torchModel, err := pytorch.Load(c.inFilename)
	if err != nil {
		return fmt.Errorf("failed to load torch model %q: %w", c.inFilename, err)
	}
	params, err := makeParamsMap(torchModel)
	if err != nil {
		return fmt.Errorf("failed to read model params: %w", err)
	}

	// Published checkpoints name the group either "embeddings." or
	// "roberta.embeddings.", depending on whether they were saved with a
	// task head on top.
	c.params = params.fetchPrefixed("roberta.").fetchPrefixed("embeddings.")
	if len(c.params) == 0 {
		c.params = params.fetchPrefixed("embeddings.")
	}
	if len(c.params) == 0 {
		return fmt.Errorf("no input-embeddings parameters found in %q", c.inFilename)
	}
	return nil
}

func (c *converter[T]) tensorToVectors(t *pytorch.Tensor) ([]mat.Matrix, error) {
	if len(t.Size) != 2 {
		return nil, fmt.Errorf("expected 2 dimensions, actual %d", len(t.Size))
	}

	data, err := c.tensorData(t)
	if err != nil {
		return nil, err
	}

	rows := t.Size[0]
	cols := t.Size[1]

	vecs := make([]mat.Matrix, rows)
	for i := range vecs {
		d := data[i*cols : (i*cols)+cols]
		vecs[i] = mat.NewDense[T](mat.WithShape(cols), mat.WithBacking(c.castData(d)))
	}

	return vecs, nil
}

func (c *converter[T]) tensorToVector(t *pytorch.Tensor) (mat.Matrix, error) {
	if len(t.Size) != 1 {
		return nil, fmt.Errorf("expected 1 dimension, actual %d", len(t.Size))
	}

	data, err := c.tensorData(t)
	if err != nil {
		return nil, err
	}

	return mat.NewDense[T](mat.WithShape(t.Size[0]), mat.WithBacking(c.castData(data))), nil
}

func (c *converter[T]) castData(d []float32) []T {
	return float.SliceValueOf[T](float.Make(d...))
}

func (c *converter[T]) tensorData(t *pytorch.Tensor) ([]float32, error) {
	st, ok := t.Source.(*pytorch.FloatStorage)
	if !ok {
		return nil, fmt.Errorf("only FloatStorage is supported, actual %T", t.Source)
	}
	size := tensorDataSize(t)
	return st.Data[t.StorageOffset : t.StorageOffset+size], nil
}

func (c *converter[T]) fetchParamToVector(name string, expectedSize int) (mat.Matrix, error) {
	t, err := c.params.fetch(name)
	if err != nil {
		return nil, err
	}
	v, err := c.tensorToVector(t)
	if err != nil {
		return nil, err
	}
	if v.Size() != expectedSize {
		return nil, fmt.Errorf("expected vector size %d, actual %d", expectedSize, v.Size())
	}
	return v, nil
}

func tensorDataSize(t *pytorch.Tensor) int {
	size := t.Size[0]
	for _, v := range t.Size[1:] {
		size *= v
	}
	return size
}

func cast[T any](v any) (t T, _ error) {
	t, ok := v.(T)
	if !ok {
		return t, fmt.Errorf("type assertion failed: expected %T, actual %T", t, v)
	}
	return
}

type paramsMap map[string]*pytorch.Tensor

func makeParamsMap(torchModel any) (paramsMap, error) {
	od, err := cast[*types.OrderedDict](torchModel)
	if err != nil {
		return nil, err
	}

	params := make(paramsMap, od.Len())

	for k, item := range od.Map {
		name, err := cast[string](k)
		if err != nil {
			return nil, fmt.Errorf("wrong param name type: %w", err)
		}
		tensor, err := cast[*pytorch.Tensor](item.Value)
		if err != nil {
			return nil, fmt.Errorf("wrong value type for param %q: %w", name, err)
		}
		params[name] = tensor
	}

	return params, nil
}

// fetch gets a value from params by its name, removing the entry
// from the map.
func (p paramsMap) fetch(name string) (*pytorch.Tensor, error) {
	t, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("parameter %q not found", name)
	}
	delete(p, name)
	return t, nil
}

func (p paramsMap) fetchPrefixed(prefix string) paramsMap {
	out := make(paramsMap, len(p))
	for k, v := range p {
		if after, ok := strings.CutPrefix(k, prefix); ok {
			out[after] = v
			delete(p, k)
		}
	}
	return out
}
