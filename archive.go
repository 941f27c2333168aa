package opc

import (
	"archive/zip"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// archiveReader exposes the entries of a ZIP container and inflates them
// under the package limits.
type archiveReader struct {
	zr     *zip.Reader
	limits Limits
	log    *slog.Logger
}

func newArchiveReader(r io.ReaderAt, size int64, limits Limits, log *slog.Logger) (*archiveReader, error) {
	zr, err := zipNewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &archiveReader{zr: zr, limits: limits, log: log}, nil
}

func (a *archiveReader) files() []*zip.File { return a.zr.File }

// open returns a reader over the inflated content of f. Every Read checks
// the entry against MaxEntrySize and MinInflateRatio.
func (a *archiveReader) open(f *zip.File) (io.ReadCloser, error) {
	if f.UncompressedSize64 > a.limits.MaxEntrySize {
		a.log.Warn("opc: zip bomb detected", "entry", f.Name, "declared", f.UncompressedSize64, "max_entry_size", a.limits.MaxEntrySize)
		return nil, fmt.Errorf("%w: %s declares %d bytes, limit %d", ErrSecurityLimitExceeded, f.Name, f.UncompressedSize64, a.limits.MaxEntrySize)
	}
	raw, err := zipOpenRaw(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, f.Name, err)
	}
	counter := &countingReader{r: raw}
	dec, err := decompressor(f.Method, counter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return &thresholdReader{
		f:       f,
		dec:     dec,
		counter: counter,
		crc:     crc32.NewIEEE(),
		limits:  a.limits,
		log:     a.log,
	}, nil
}

func (a *archiveReader) readAll(f *zip.File) ([]byte, error) {
	rc, err := a.open(f)
	if err != nil {
		return nil, err
	}
	b, err := readAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

type countingReader struct {
	r io.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

// thresholdReader inflates one entry and aborts as soon as the output
// outgrows either limit. At EOF it verifies the declared size and CRC-32,
// which raw opening bypasses.
type thresholdReader struct {
	f        *zip.File
	dec      io.ReadCloser
	counter  *countingReader
	produced uint64
	crc      hash.Hash32
	limits   Limits
	log      *slog.Logger
	err      error
}

func (t *thresholdReader) Read(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.dec.Read(p)
	t.produced += uint64(n)
	t.crc.Write(p[:n])
	if lerr := t.check(); lerr != nil {
		t.err = lerr
		return 0, lerr
	}
	if errors.Is(err, io.EOF) {
		if verr := t.verify(); verr != nil {
			t.err = verr
			return n, verr
		}
		t.err = io.EOF
	} else if err != nil {
		t.err = fmt.Errorf("%w: %s: %v", ErrInvalidFormat, t.f.Name, err)
		return n, t.err
	}
	return n, err
}

func (t *thresholdReader) check() error {
	if t.produced > t.limits.MaxEntrySize {
		t.log.Warn("opc: zip bomb detected", "entry", t.f.Name, "produced", t.produced, "max_entry_size", t.limits.MaxEntrySize)
		return fmt.Errorf("%w: %s inflated past %d bytes", ErrSecurityLimitExceeded, t.f.Name, t.limits.MaxEntrySize)
	}
	if t.produced == 0 {
		return nil
	}
	ratio := float64(t.counter.n) / float64(t.produced)
	if ratio < t.limits.MinInflateRatio {
		t.log.Warn("opc: zip bomb detected", "entry", t.f.Name, "ratio", ratio, "min_inflate_ratio", t.limits.MinInflateRatio)
		return fmt.Errorf("%w: %s ratio %.5f below %.5f", ErrSecurityLimitExceeded, t.f.Name, ratio, t.limits.MinInflateRatio)
	}
	return nil
}

func (t *thresholdReader) verify() error {
	if t.produced != t.f.UncompressedSize64 {
		return fmt.Errorf("%w: %s: inflated %d bytes, declared %d", ErrInvalidFormat, t.f.Name, t.produced, t.f.UncompressedSize64)
	}
	if t.f.CRC32 != 0 && t.crc.Sum32() != t.f.CRC32 {
		return fmt.Errorf("%w: %s: checksum mismatch", ErrInvalidFormat, t.f.Name)
	}
	return nil
}

func (t *thresholdReader) Close() error { return t.dec.Close() }

// dosEpoch is 1980-01-01 00:00 in MS-DOS date format. Every entry carries
// it so equal packages produce equal bytes.
const dosEpoch = 1<<5 | 1

// archiveWriter writes a fresh ZIP container entry by entry.
type archiveWriter struct {
	zw  *zip.Writer
	cfg saveConfig
}

func newArchiveWriter(w io.Writer, cfg saveConfig) *archiveWriter {
	zw := zip.NewWriter(w)
	registerCompressors(zw, cfg)
	return &archiveWriter{zw: zw, cfg: cfg}
}

func entryHeader(name string, method uint16) *zip.FileHeader {
	fh := &zip.FileHeader{Name: name, Method: method, ModifiedDate: dosEpoch}
	if !isASCII(name) {
		fh.Flags |= 0x800
	}
	return fh
}

// write stores data under name with the configured method.
func (a *archiveWriter) write(name string, data []byte) error {
	w, err := a.zw.CreateHeader(entryHeader(name, uint16(a.cfg.compression)))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// copyRaw moves the still-compressed bytes of src into a new entry called
// name, so unchanged parts are never inflated.
func (a *archiveWriter) copyRaw(name string, src *zip.File) error {
	fh := entryHeader(name, src.Method)
	fh.CRC32 = src.CRC32
	fh.CompressedSize64 = src.CompressedSize64
	fh.UncompressedSize64 = src.UncompressedSize64
	w, err := a.zw.CreateRaw(fh)
	if err != nil {
		return err
	}
	raw, err := zipOpenRaw(src)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, raw)
	return err
}

func (a *archiveWriter) close() error { return zipClose(a.zw) }

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isDirEntry(f *zip.File) bool { return strings.HasSuffix(f.Name, "/") }
