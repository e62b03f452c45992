// Package fileio opens text files transparently across plain, gzip, xz
// and bzip2 compression, selected by filename suffix, with optional
// character-encoding detection from a leading byte sample.
package fileio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/saintfish/chardet"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/htmlindex"
)

// Compression identifies the codec selected for a file.
type Compression string

const (
	None  Compression = ""
	Gzip  Compression = "gzip"
	Xz    Compression = "xz"
	Bzip2 Compression = "bzip2"
)

// detectSampleSize is the fixed number of leading (decompressed) bytes
// fed to the charset detector.
const detectSampleSize = 512

// File wraps a path with its suffix-derived compression codec and an
// optional character encoding. The zero encoding means UTF-8.
type File struct {
	path        string
	compression Compression
	encoding    string
}

// Option configures a File.
type Option func(*File)

// WithEncoding sets the character encoding used by ReadText, WriteText
// and ReadLines. Names are resolved case-insensitively through the
// WHATWG index ("shift_jis", "ISO-8859-1", ...).
func WithEncoding(name string) Option {
	return func(f *File) { f.encoding = name }
}

// New builds a File for path, selecting the codec from the suffix:
// ".gz" is gzip, ".xz" is xz, ".bz2" is bzip2, anything else is plain.
func New(path string, opts ...Option) *File {
	f := &File{path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		f.compression = Gzip
	case ".xz":
		f.compression = Xz
	case ".bz2":
		f.compression = Bzip2
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Compression returns the codec selected from the suffix.
func (f *File) Compression() Compression { return f.compression }

// Encoding returns the configured or detected encoding name, empty for
// UTF-8.
func (f *File) Encoding() string { return f.encoding }

func (f *File) String() string { return f.path }

// Open returns a decompressed byte stream positioned at the start of
// the file's content. The caller must close it; closing also closes the
// underlying file handle.
func (f *File) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	switch f.compression {
	case None:
		return file, nil
	case Gzip:
		zr, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("gzip open %s: %w", f.path, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, file}}, nil
	case Xz:
		xr, err := xz.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("xz open %s: %w", f.path, err)
		}
		return &readCloser{Reader: xr, closers: []io.Closer{file}}, nil
	case Bzip2:
		br, err := bzip2.NewReader(file, nil)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("bzip2 open %s: %w", f.path, err)
		}
		return &readCloser{Reader: br, closers: []io.Closer{br, file}}, nil
	}
	file.Close()
	return nil, fmt.Errorf("invalid compression mode %q", f.compression)
}

// Create returns a write stream that compresses per the file's suffix.
// The caller must close it to flush the codec and the file handle.
func (f *File) Create() (io.WriteCloser, error) {
	file, err := os.Create(f.path)
	if err != nil {
		return nil, err
	}
	switch f.compression {
	case None:
		return file, nil
	case Gzip:
		zw := gzip.NewWriter(file)
		return &writeCloser{Writer: zw, closers: []io.Closer{zw, file}}, nil
	case Xz:
		xw, err := xz.NewWriter(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("xz create %s: %w", f.path, err)
		}
		return &writeCloser{Writer: xw, closers: []io.Closer{xw, file}}, nil
	case Bzip2:
		bw, err := bzip2.NewWriter(file, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("bzip2 create %s: %w", f.path, err)
		}
		return &writeCloser{Writer: bw, closers: []io.Closer{bw, file}}, nil
	}
	file.Close()
	return nil, fmt.Errorf("invalid compression mode %q", f.compression)
}

// DetectEncoding samples the first decompressed bytes of the file, runs
// charset detection on them and records the winner as the file's
// encoding. It returns the detected name.
func (f *File) DetectEncoding() (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	sample := make([]byte, detectSampleSize)
	n, err := io.ReadFull(r, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("sample %s: %w", f.path, err)
	}

	result, err := chardet.NewTextDetector().DetectBest(sample[:n])
	if err != nil {
		return "", fmt.Errorf("detect encoding of %s: %w", f.path, err)
	}
	f.encoding = result.Charset
	return f.encoding, nil
}

// ReadText reads the whole file, decompressed and decoded to UTF-8.
// An explicit encoding overrides the File's configured one; empty means
// the content is already UTF-8.
func (f *File) ReadText(encoding string) ([]byte, error) {
	if encoding == "" {
		encoding = f.encoding
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if encoding == "" {
		return data, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s as %s: %w", f.path, encoding, err)
	}
	return decoded, nil
}

// WriteText writes UTF-8 text, encoded per the given (or configured)
// encoding and compressed per the suffix.
func (f *File) WriteText(data []byte, encoding string) error {
	if encoding == "" {
		encoding = f.encoding
	}
	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return fmt.Errorf("unknown encoding %q: %w", encoding, err)
		}
		encoded, err := enc.NewEncoder().Bytes(data)
		if err != nil {
			return fmt.Errorf("encode %s as %s: %w", f.path, encoding, err)
		}
		data = encoded
	}

	w, err := f.Create()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return w.Close()
}

// LinesOptions controls ReadLines.
type LinesOptions struct {
	// Rstrip removes trailing whitespace from each line. Defaults true
	// via ReadLines.
	Rstrip bool
	// Encoding overrides the File's configured encoding for this read.
	Encoding string
}

// ReadLines reads the file line by line with trailing whitespace
// stripped. Use ReadLinesWith for control over stripping and encoding.
func (f *File) ReadLines() ([]string, error) {
	return f.ReadLinesWith(LinesOptions{Rstrip: true})
}

// ReadLinesWith reads all lines, decoding per the options.
func (f *File) ReadLinesWith(opts LinesOptions) ([]string, error) {
	data, err := f.ReadText(opts.Encoding)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if opts.Rstrip {
			line = strings.TrimRight(line, " \t\r\n\v\f")
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", f.path, err)
	}
	return lines, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type writeCloser struct {
	io.Writer
	closers []io.Closer
}

func (wc *writeCloser) Close() error {
	var first error
	for _, c := range wc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
