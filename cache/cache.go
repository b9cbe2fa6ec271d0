// Package cache implements a small response cache for API harvests,
// keyed by URL, living under the user cache dir.
package cache

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/yiruiw/taxokit/atomicfile"
)

// ErrMiss signals that a key has no cached value.
var ErrMiss = errors.New("cache miss")

// Cacher is a simple byte cache.
type Cacher interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FileCacher stores one file per key. The zero value works and caches
// under the XDG cache home for the application.
type FileCacher struct {
	AppName string
	Dir     string        // overrides the XDG location, for tests
	Sleep   time.Duration // delay after a miss, to go easy on upstreams
}

func (c *FileCacher) appName() string {
	if c.AppName == "" {
		return "taxokit"
	}
	return c.AppName
}

// slugify derives a stable filename for a key.
func slugify(key string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}

func (c *FileCacher) path(key string) (string, error) {
	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0755); err != nil {
			return "", err
		}
		return filepath.Join(c.Dir, slugify(key)), nil
	}
	return xdg.CacheFile(filepath.Join(c.appName(), slugify(key)))
}

// Get returns the cached value for a key, or ErrMiss. After a miss the
// configured sleep is applied, so callers hitting the network right
// after stay throttled.
func (c *FileCacher) Get(key string) ([]byte, error) {
	p, err := c.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		if c.Sleep > 0 {
			time.Sleep(c.Sleep)
		}
		return nil, ErrMiss
	}
	return b, err
}

// Set stores a value for a key.
func (c *FileCacher) Set(key string, value []byte) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(p, value, 0644)
}
