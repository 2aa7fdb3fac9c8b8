// util/file.go
// Copyright(c) 2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

type zstdReadCloser struct {
	*zstd.Decoder
	f *os.File
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// OpenMaybeCompressed opens the named file for reading, transparently
// decompressing it if its name ends in ".zst".
func OpenMaybeCompressed(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".zst") {
		return f, nil
	}

	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
	if err != nil {
		f.Close()
		return nil, err
	}
	return zstdReadCloser{Decoder: zr, f: f}, nil
}

// WriteCompressed writes b to the named file, zstd-compressing it when the
// name ends in ".zst".
func WriteCompressed(name string, b []byte) error {
	if strings.HasSuffix(name, ".zst") {
		zw, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		b = zw.EncodeAll(b, nil)
		zw.Close()
	}
	return os.WriteFile(name, b, 0644)
}
