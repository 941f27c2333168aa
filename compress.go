package opc

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// Function variables for testing injection.
var (
	zipNewReader   = zip.NewReader
	zipClose       = func(zw *zip.Writer) error { return zw.Close() }
	zipOpenRaw     = func(zf *zip.File) (io.Reader, error) { return zf.OpenRaw() }
	readAll        = io.ReadAll
	newFlateWriter = func(w io.Writer, level int) (io.WriteCloser, error) { return flate.NewWriter(w, level) }
	newZstdReader  = func(r io.Reader) (*zstd.Decoder, error) {
		return zstd.NewReader(r, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	}
	newZstdWriter = func(w io.Writer, level int) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)), zstd.WithEncoderConcurrency(1))
	}
)

// decompressor returns a reader inflating raw entry bytes stored with
// method. Unknown methods are a format error rather than a silent skip.
func decompressor(method uint16, raw io.Reader) (io.ReadCloser, error) {
	switch Compression(method) {
	case CompStore:
		return io.NopCloser(raw), nil
	case CompDeflate:
		return flate.NewReader(raw), nil
	case CompZSTD:
		dec, err := newZstdReader(raw)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{dec}, nil
	}
	return nil, fmt.Errorf("%w: unsupported compression method %d", ErrInvalidFormat, method)
}

// zstdReadCloser adapts Decoder.Close, which returns nothing.
type zstdReadCloser struct{ *zstd.Decoder }

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// registerCompressors installs the klauspost codecs on zw at the configured
// level. Stored entries need no compressor.
func registerCompressors(zw *zip.Writer, cfg saveConfig) {
	level := cfg.level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		if level == defaultLevel {
			return newFlateWriter(w, flate.DefaultCompression)
		}
		return newFlateWriter(w, level)
	})
	zw.RegisterCompressor(uint16(CompZSTD), func(w io.Writer) (io.WriteCloser, error) {
		if level == defaultLevel {
			return newZstdWriter(w, 3)
		}
		return newZstdWriter(w, level)
	})
}

func validCompression(c Compression) error {
	switch c {
	case CompStore, CompDeflate, CompZSTD:
		return nil
	}
	return fmt.Errorf("%w: unknown compression %d", ErrInvalidOperation, c)
}
