package upload

import (
	"sync"

	"github.com/google/uuid"
)

// Preview is the image shown next to a file field. Existing previews point at
// the server URL of a persisted file; the rest are object URLs minted for a
// local selection.
type Preview struct {
	URL      string
	Existing bool
}

// URLMinter creates and revokes object URLs for local file previews.
type URLMinter interface {
	Mint(file File) string
	Revoke(url string)
}

// ObjectURLs mints blob: URLs and tracks which are still live.
type ObjectURLs struct {
	mu   sync.Mutex
	live map[string]File
}

// NewObjectURLs returns an empty minter.
func NewObjectURLs() *ObjectURLs {
	return &ObjectURLs{live: make(map[string]File)}
}

// Mint registers the file under a fresh blob: URL.
func (o *ObjectURLs) Mint(file File) string {
	url := "blob:" + uuid.NewString()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.live == nil {
		o.live = make(map[string]File)
	}
	o.live[url] = file
	return url
}

// Revoke releases a minted URL. Unknown URLs are ignored.
func (o *ObjectURLs) Revoke(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.live, url)
}

// Resolve returns the file behind a live URL.
func (o *ObjectURLs) Resolve(url string) (File, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	file, ok := o.live[url]
	return file, ok
}

// Live reports how many URLs are still minted.
func (o *ObjectURLs) Live() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.live)
}
