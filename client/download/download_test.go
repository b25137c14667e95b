package download_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamwoolhether/reqpipe/client"
	"github.com/adamwoolhether/reqpipe/client/clienttest"
	"github.com/adamwoolhether/reqpipe/client/download"
)

const payload = "the quick brown fox jumps over the lazy dog"

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestDownload(t *testing.T) {
	errBroken := errors.New("connection reset")

	tests := []struct {
		name     string
		reply    clienttest.Reply
		opts     []download.Option
		expFile  bool
		expErrs  []error
		expBytes int64
	}{
		{
			name:     "success",
			reply:    clienttest.Reply{Body: payload, Header: http.Header{"Content-Length": {"43"}}},
			expFile:  true,
			expBytes: int64(len(payload)),
		},
		{
			name:     "unknown length with progress",
			reply:    clienttest.Reply{Body: payload},
			opts:     []download.Option{download.WithProgress()},
			expFile:  true,
			expBytes: int64(len(payload)),
		},
		{
			name:     "checksum match",
			reply:    clienttest.Reply{Body: payload},
			opts:     []download.Option{download.WithChecksumFunc(sha256.New, sum(payload))},
			expFile:  true,
			expBytes: int64(len(payload)),
		},
		{
			name:     "checksum match ignores case",
			reply:    clienttest.Reply{Body: payload},
			opts:     []download.Option{download.WithChecksum(sha256.New(), strings.ToUpper(sum(payload)))},
			expFile:  true,
			expBytes: int64(len(payload)),
		},
		{
			name:    "checksum mismatch",
			reply:   clienttest.Reply{Body: payload},
			opts:    []download.Option{download.WithChecksum(sha256.New(), sum("something else"))},
			expErrs: []error{client.ErrParse, download.ErrChecksumMismatch},
		},
		{
			name:    "length mismatch",
			reply:   clienttest.Reply{Body: "short", Header: http.Header{"Content-Length": {"100"}}},
			expErrs: []error{client.ErrParse, download.ErrContentLengthMismatch},
		},
		{
			name:    "body read failure",
			reply:   clienttest.Reply{Body: "partial", BodyErr: errBroken},
			expErrs: []error{client.ErrReadResponse, errBroken},
		},
		{
			name:    "error status",
			reply:   clienttest.Reply{Status: http.StatusNotFound},
			expErrs: []error{client.ErrStatus},
		},
		{
			name:    "invalid option",
			reply:   clienttest.Reply{Body: payload},
			opts:    []download.Option{download.WithChecksum(nil, "abc")},
			expErrs: []error{client.ErrParse},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "out.txt")

			c, err := client.New(clienttest.Sequence(tt.reply), client.WithBaseURL("https://files.example.test"))
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			req, err := download.NewRequest(client.PathEndpoint("out.txt"), dest, tt.opts)
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}

			n, err := client.Do(t.Context(), c, req)
			for _, target := range tt.expErrs {
				if !errors.Is(err, target) {
					t.Errorf("expected errors.Is(%v), got: %v", target, err)
				}
			}
			if len(tt.expErrs) == 0 && err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			data, statErr := os.ReadFile(dest)
			switch {
			case tt.expFile && statErr != nil:
				t.Fatalf("expected file to exist: %v", statErr)
			case tt.expFile && string(data) != payload:
				t.Errorf("expected file content %q, got %q", payload, data)
			case !tt.expFile && !errors.Is(statErr, os.ErrNotExist):
				t.Errorf("expected no file at destination, got: %v", statErr)
			}

			if tt.expFile && n != tt.expBytes {
				t.Errorf("expected %d bytes, got %d", tt.expBytes, n)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if e.Name() != "out.txt" {
					t.Errorf("expected temp files to be cleaned up, found %s", e.Name())
				}
			}
		})
	}
}

func TestDownload_ReplacesExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(dest, []byte("old contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := download.ToFile(dest)
	p.Init(client.ResponseParts{Header: http.Header{}})
	p.Feed([]byte("new"))

	if _, err := p.End(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("expected %q, got %q", "new", data)
	}
}

func TestDownload_Abort(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	p := download.ToFile(dest)
	p.Init(client.ResponseParts{Header: http.Header{}})
	p.Feed([]byte("partial"))
	p.Abort(errors.New("read failed"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected abort to leave no files, found %d", len(entries))
	}
}

func TestNewRequest_Validation(t *testing.T) {
	if _, err := download.NewRequest(client.PathEndpoint("x"), "", nil); err == nil {
		t.Error("expected error for empty destination")
	}
}
