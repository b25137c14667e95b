package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adamwoolhether/reqpipe/client"
)

// Parser streams a response body to a temp file in the same directory as
// its destination, then renames it on success. On any failure the temp
// file is removed. It implements [client.Parser] and [client.Aborter].
type Parser struct {
	dest   string
	opts   options
	optErr error

	file *os.File
	w    io.Writer
	n    int64
	want int64
	err  error
}

// ToFile returns a parser writing the body to destPath. Option errors are
// reported by End.
func ToFile(destPath string, optFns ...Option) *Parser {
	p := &Parser{dest: destPath, opts: options{logger: slog.Default()}}

	if destPath == "" {
		p.optErr = errors.New("destPath must not be empty")
		return p
	}

	for _, opt := range optFns {
		if err := opt(&p.opts); err != nil {
			p.optErr = fmt.Errorf("applying option: %w", err)
			return p
		}
	}

	return p
}

// NewRequest builds a GET request for endpoint whose response is written
// to destPath. Every attempt writes through a fresh parser. A hash given
// to WithChecksum is reset per attempt, so it must not be shared by
// concurrent downloads; WithChecksumFunc avoids that.
func NewRequest(endpoint client.Endpoint, destPath string, optFns []Option, reqOpts ...client.RequestOption) (client.Request[int64], error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}

	newParser := func() client.Parser[int64] {
		return ToFile(destPath, optFns...)
	}

	return client.NewRequest(client.MethodGet, endpoint, newParser, reqOpts...)
}

func (p *Parser) Init(parts client.ResponseParts) {
	if p.optErr != nil {
		return
	}

	p.want = parts.ContentLength()

	file, err := os.CreateTemp(filepath.Dir(p.dest), ".reqpipe-dl-*")
	if err != nil {
		p.err = fmt.Errorf("creating temp file: %w", err)
		return
	}
	p.file = file

	var w io.Writer = file
	if p.opts.checksum != nil {
		p.opts.checksum.hash.Reset()
		w = io.MultiWriter(w, p.opts.checksum)
	}

	if p.opts.progress {
		w = &progressWriter{
			w:         w,
			logger:    p.opts.logger,
			total:     p.want,
			startTime: time.Now(),
		}
	}
	p.w = w
}

func (p *Parser) Feed(chunk []byte) {
	if p.w == nil || p.err != nil {
		return
	}

	n, err := p.w.Write(chunk)
	p.n += int64(n)
	if err != nil {
		p.err = fmt.Errorf("writing file body: %w", err)
	}
}

// End finalizes the file and returns the number of bytes written.
func (p *Parser) End() (int64, error) {
	if p.optErr != nil {
		return 0, p.optErr
	}
	if p.file == nil && p.err == nil {
		panic("download: parser ended before Init")
	}

	if err := p.finish(); err != nil {
		p.cleanup()
		return p.n, err
	}

	return p.n, nil
}

// Abort removes the temp file after a failed read.
func (p *Parser) Abort(err error) {
	p.opts.logger.Debug("download aborted", "path", p.dest, "error", err)
	p.cleanup()
}

func (p *Parser) finish() error {
	if p.err != nil {
		return p.err
	}

	if p.want >= 0 && p.n != p.want {
		return &Error{
			Path:   p.dest,
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", p.want, p.n),
		}
	}

	if err := p.opts.checksum.verify(p.dest); err != nil {
		return err
	}

	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(p.file.Name(), p.dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	p.file = nil

	return nil
}

func (p *Parser) cleanup() {
	if p.file == nil {
		return
	}

	if err := p.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.opts.logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(p.file.Name()); err != nil {
		p.opts.logger.Error("failed to remove temp file", "error", err)
	}
	p.file = nil
}
