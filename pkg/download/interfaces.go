package download

import (
	"context"
)

// Downloader streams a remote resource into a local file.
type Downloader interface {
	// Download fetches rawURL into dst. dst is replaced atomically; on failure no
	// partial file is left behind. It returns the number of bytes written.
	Download(ctx context.Context, rawURL, dst string) (int64, error)
}
