// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nlpodyssey/roberta"
	"github.com/nlpodyssey/roberta/downloader"
	"github.com/nlpodyssey/roberta/embeddings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)

	app := &cli.App{
		Name:  "roberta",
		Usage: "Operate on the input embeddings of RoBERTa-like models",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "set log level (trace, debug, info, warn, error, fatal, panic)",
				Action: func(c *cli.Context, s string) error {
					return setDebugLevel(s)
				},
				Value:   "info",
				EnvVars: []string{"ROBERTA_LOGLEVEL"},
			},
			&cli.StringFlag{
				Name:     "model-dir",
				Usage:    "directory of the model to operate on",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "download",
				Usage: "Download model to directory",
				Action: func(c *cli.Context) error {
					return download(c.String("model-dir"))
				},
			},
			{
				Name:  "convert",
				Usage: "Convert model in directory",
				Action: func(c *cli.Context) error {
					return convert(c.String("model-dir"))
				},
			},
			{
				Name:  "encode",
				Usage: "Embed whitespace-separated token ids read from standard input, one sequence per line",
				Action: func(c *cli.Context) error {
					return encode(c.String("model-dir"), c.String("opts"))
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "opts",
						Usage:    "YAML file with encoding options",
						Required: false,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func setDebugLevel(debugLevel string) error {
	level, err := zerolog.ParseLevel(debugLevel)
	if err != nil {
		return err
	}
	log.Logger = log.Level(level)
	return nil
}

func download(modelDir string) error {
	log.Debug().Msgf("Downloading model in dir: %s", modelDir)
	dir, name, err := splitPathAndModelName(modelDir)
	if err != nil {
		return err
	}
	if err = downloader.Download(dir, name, false, ""); err != nil {
		return err
	}
	log.Debug().Msg("Done.")
	return nil
}

func convert(modelDir string) error {
	log.Debug().Msgf("Converting model in dir: %s", modelDir)
	err := roberta.ConvertPickledModel[float32](roberta.ConverterConfig{
		ModelDir:         modelDir,
		OverwriteIfExist: false,
	})
	if err != nil {
		return err
	}
	log.Debug().Msg("Done.")
	return nil
}

// encodingOptions controls the encode command.
type encodingOptions struct {
	// Training enables the dropout step.
	Training bool `yaml:"training"`
	// TokenTypeID is assigned to every position of every sequence.
	TokenTypeID int `yaml:"token_type_id"`
}

func encode(modelDir, optsFile string) error {
	opts, err := encodingOptionsFromFile(optsFile)
	if err != nil {
		return err
	}

	log.Debug().Msgf("Loading model from dir: %s", modelDir)
	model, err := roberta.Load(modelDir)
	if err != nil {
		return err
	}

	tokenIDs, err := readTokenIDs(os.Stdin)
	if err != nil {
		return err
	}

	input := embeddings.FromTokenIDs(tokenIDs)
	if opts.TokenTypeID != 0 {
		input.TokenTypeIDs = uniformTypeIDs(tokenIDs, opts.TokenTypeID)
	}

	encoded, err := model.Forward(input, opts.Training)
	if err != nil {
		return err
	}

	for r, row := range encoded {
		norms := make([]string, len(row))
		for i, x := range row {
			norms[i] = fmt.Sprintf("%.4f", norm2(x.Data().F64()))
		}
		fmt.Printf("sequence %d: %s\n", r, strings.Join(norms, " "))
	}
	return nil
}

func encodingOptionsFromFile(filepath string) (encodingOptions, error) {
	if filepath == "" {
		return encodingOptions{}, nil
	}
	data, err := os.ReadFile(filepath)
	if err != nil {
		return encodingOptions{}, fmt.Errorf("error reading options file: %w", err)
	}
	var opts encodingOptions
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return encodingOptions{}, fmt.Errorf("error unmarshaling options file: %w", err)
	}
	return opts, nil
}

func readTokenIDs(f *os.File) ([][]int, error) {
	var batch [][]int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		ids := make([]int, len(fields))
		for i, field := range fields {
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("invalid token id %q: %w", field, err)
			}
			ids[i] = id
		}
		batch = append(batch, ids)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from standard input: %w", err)
	}
	return batch, nil
}

func uniformTypeIDs(tokenIDs [][]int, typeID int) [][]int {
	out := make([][]int, len(tokenIDs))
	for r, row := range tokenIDs {
		out[r] = make([]int, len(row))
		for i := range out[r] {
			out[r][i] = typeID
		}
	}
	return out
}

func norm2(data []float64) float64 {
	sum := 0.0
	for _, v := range data {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// splitPathAndModelName separate the models directory from the model name, which format is "organization/model"
func splitPathAndModelName(path string) (string, string, error) {
	dirs := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(dirs) < 3 {
		return "", "", fmt.Errorf("path must have at least three levels of directories")
	}
	lastDir := dirs[len(dirs)-1]
	secondLastDir := dirs[len(dirs)-2]

	pathExceptLastTwo := strings.Join(dirs[:len(dirs)-2], "/")
	return pathExceptLastTwo, filepath.Join(secondLastDir, lastDir), nil
}
