// Copyright 2023 NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package downloader

import (
	"github.com/rs/zerolog/log"
)

// logStep is the amount of downloaded bytes between progress log lines.
const logStep = 50 * 1024 * 1024

// downloadProgress reports download progress through the logger. It
// implements io.Writer so it can sit on a TeeReader.
type downloadProgress struct {
	filename      string
	total         int64
	written       int64
	reportedSteps int64
}

func newDownloadProgress(filename string, total int64) *downloadProgress {
	return &downloadProgress{filename: filename, total: total}
}

func (p *downloadProgress) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if steps := p.written / logStep; steps > p.reportedSteps {
		p.reportedSteps = steps
		ev := log.Info().Str("file", p.filename).Int64("bytes", p.written)
		if p.total > 0 {
			ev = ev.Int64("of", p.total)
		}
		ev.Msg("downloading")
	}
	return len(b), nil
}

func (p *downloadProgress) Done() {
	log.Info().Str("file", p.filename).Int64("bytes", p.written).Msg("download complete")
}
