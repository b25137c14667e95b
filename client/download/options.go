package download

import (
	"errors"
	"hash"
	"log/slog"
)

// Option defines optional settings for downloading files.
type Option func(*options) error

type options struct {
	checksum *checksumVerifier
	progress bool
	logger   *slog.Logger
}

// WithChecksum enables checksum validation of the downloaded file. h is a
// hash.Hash instance (e.g. sha256.New()), and expected is the hex-encoded
// expected checksum. h is reset at the start of every download.
func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.checksum = &checksumVerifier{hash: h, expected: expected}
		return nil
	}
}

// WithChecksumFunc is WithChecksum with a fresh hash per download.
func WithChecksumFunc(newHash func() hash.Hash, expected string) Option {
	return func(opts *options) error {
		if newHash == nil {
			return errors.New("hash func must not be nil")
		}
		return WithChecksum(newHash(), expected)(opts)
	}
}

// WithProgress enables download progress logging, at most once per second.
func WithProgress() Option {
	return func(opts *options) error {
		opts.progress = true
		return nil
	}
}

// WithLogger sets the logger used for progress and cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}
