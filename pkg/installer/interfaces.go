//go:generate mockgen -destination=./mocks/installer.go . Fetcher

package installer

import (
	"context"
)

// Fetcher is the subset of the cache used by the installer.
type Fetcher interface {
	// Fetch returns the path of a verified local copy of rawURL.
	Fetch(ctx context.Context, name, rawURL, algorithm, expectedHash string) (string, error)
}

// Event represents a simple progress notification.
type Event struct {
	Phase   string // fetching|checking|uninstalling|installing|current|dry-run|done|error
	Package string
	Msg     string
}

// Events carries callbacks for progress events.
type Events struct {
	OnEvent func(Event)
}

func emit(h Events, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}
