// Package download streams response bodies to disk with optional checksum
// validation and progress reporting.
//
// [ToFile] returns a client.Parser that writes to a temporary file
// alongside the destination path and atomically renames it once the body
// is complete:
//
//	req, err := download.NewRequest(
//		client.PathEndpoint("releases", "v1.2.0", "asset.tar.gz"),
//		"/tmp/asset.tar.gz",
//		[]download.Option{download.WithChecksumFunc(sha256.New, expectedHex)},
//	)
//	n, err := client.Do(ctx, c, req)
package download
