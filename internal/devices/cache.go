package devices

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/smazurov/rtspcam/internal/events"
	"github.com/smazurov/rtspcam/internal/logging"
)

// DefaultCacheTTL bounds how long a listing is reused.
const DefaultCacheTTL = 5 * time.Second

const cacheKey = "devices"

// Cached memoizes an Enumerator for a short time. Enumeration may shell out
// to ffmpeg, which takes a noticeable fraction of a second.
type Cached struct {
	inner  Enumerator
	cache  *expirable.LRU[string, []Descriptor]
	bus    *events.Bus
	logger *slog.Logger
}

// NewCached wraps inner. A ttl <= 0 uses DefaultCacheTTL. bus may be nil.
func NewCached(inner Enumerator, ttl time.Duration, bus *events.Bus) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		inner:  inner,
		cache:  expirable.NewLRU[string, []Descriptor](1, nil, ttl),
		bus:    bus,
		logger: logging.GetLogger("devices"),
	}
}

// List returns the cached listing or enumerates afresh.
func (c *Cached) List(ctx context.Context) ([]Descriptor, error) {
	if devs, ok := c.cache.Get(cacheKey); ok {
		return slices.Clone(devs), nil
	}

	devs, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	if devs == nil {
		devs = []Descriptor{}
	}
	c.cache.Add(cacheKey, devs)
	c.logger.Debug("Enumerated capture devices", "count", len(devs))

	if c.bus != nil {
		c.bus.Publish(events.DevicesListedEvent{
			Count:     len(devs),
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return slices.Clone(devs), nil
}

// Invalidate drops the cached listing.
func (c *Cached) Invalidate() {
	c.cache.Purge()
}

// Watch invalidates the cache and re-enumerates whenever a video node
// appears in or disappears from dir (usually /dev). It blocks until ctx is done.
func (c *Cached) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	c.logger.Info("Watching for device hotplug", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), "video") {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) {
				continue
			}
			c.logger.Info("Capture device changed", "path", ev.Name, "op", ev.Op.String())
			c.Invalidate()
			if _, err := c.List(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Warn("Failed to re-enumerate devices", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("Device watcher error", "error", err)
		}
	}
}
