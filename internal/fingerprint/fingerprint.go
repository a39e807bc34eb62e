package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"permitcli/internal/infrastructure"
)

// Components maps component names to collected identifier values. Keys are
// fixed per OS family; a component whose probe failed or returned a
// placeholder is present with an empty value and never contributes to the
// hash.
type Components map[string]string

// Present returns the number of components carrying a usable value.
func (c Components) Present() int {
	n := 0
	for _, v := range c {
		if v != "" {
			n++
		}
	}
	return n
}

// Family identifies one of the closed set of platform probe sets.
type Family int

const (
	FamilyFallback Family = iota
	FamilyWindows
	FamilyDarwin
	FamilyLinux
)

// String returns the family name used in logs.
func (f Family) String() string {
	switch f {
	case FamilyWindows:
		return "windows"
	case FamilyDarwin:
		return "darwin"
	case FamilyLinux:
		return "linux"
	default:
		return "fallback"
	}
}

// DetectFamily maps the running OS to its probe set family.
func DetectFamily() Family {
	switch runtime.GOOS {
	case "windows":
		return FamilyWindows
	case "darwin":
		return FamilyDarwin
	case "linux":
		return FamilyLinux
	default:
		return FamilyFallback
	}
}

// Collector gathers hardware components for the selected OS family. It is
// safe for concurrent use; the computed identity is cached.
type Collector struct {
	family   Family
	probes   []probe
	run      CommandRunner
	readFile FileReader
	readDir  DirReader
	timeout  time.Duration

	cacheMutex  sync.RWMutex
	cachedID    string
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

// Option configures a Collector.
type Option func(*Collector)

// WithTimeout bounds each individual probe.
func WithTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

// WithFamily overrides OS detection. Used by tests and diagnostics tooling.
func WithFamily(f Family) Option {
	return func(c *Collector) {
		c.family = f
		c.probes = probeSet(f)
	}
}

// WithRunner injects a command runner. Used by tests.
func WithRunner(r CommandRunner) Option {
	return func(c *Collector) { c.run = r }
}

// WithFileReader injects a file reader. Used by tests.
func WithFileReader(r FileReader) Option {
	return func(c *Collector) { c.readFile = r }
}

// WithDirReader injects a directory reader. Used by tests.
func WithDirReader(r DirReader) Option {
	return func(c *Collector) { c.readDir = r }
}

// NewCollector creates a collector with the probe set for the running OS.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		family:   DetectFamily(),
		run:      execRunner{},
		readFile: os.ReadFile,
		readDir:  os.ReadDir,
		timeout:  defaultTimeout,
		cacheTTL: time.Hour,
	}
	c.probes = probeSet(c.family)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// probeSet returns the fixed probe list for a family.
func probeSet(f Family) []probe {
	switch f {
	case FamilyWindows:
		return windowsProbes()
	case FamilyDarwin:
		return darwinProbes()
	case FamilyLinux:
		return linuxProbes()
	default:
		return fallbackProbes()
	}
}

// Collect runs every probe of the selected set and assembles the component
// mapping. It never fails: each probe degrades to an absent value on error,
// timeout or placeholder output. Probes run concurrently, each under its own
// timeout.
func (c *Collector) Collect(ctx context.Context) Components {
	start := time.Now()
	logger := infrastructure.LoggerWithContext(ctx)

	values := make([]string, len(c.probes))
	g, probeCtx := errgroup.WithContext(ctx)
	for i, p := range c.probes {
		g.Go(func() error {
			values[i] = c.runProbe(probeCtx, p)
			return nil
		})
	}
	// Probes never return errors; Wait only orders the writes above.
	_ = g.Wait()

	components := make(Components, len(c.probes))
	for i, p := range c.probes {
		components[p.key] = values[i]
	}

	logger.DebugContext(ctx, "hardware components collected",
		slog.String("component", "fingerprint"),
		slog.String("family", c.family.String()),
		slog.Int("present", components.Present()),
		slog.Int("total", len(components)),
		slog.Duration("duration", time.Since(start)),
	)

	return components
}

// Fingerprint collects components and reduces them to the device identity.
// The result is cached; hardware identifiers do not change within a process
// lifetime.
func (c *Collector) Fingerprint(ctx context.Context) string {
	c.cacheMutex.RLock()
	if c.cachedID != "" && time.Now().Before(c.cacheExpiry) {
		id := c.cachedID
		c.cacheMutex.RUnlock()
		return id
	}
	c.cacheMutex.RUnlock()

	id := Hash(c.Collect(ctx))

	c.cacheMutex.Lock()
	c.cachedID = id
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
	c.cacheMutex.Unlock()

	return id
}

// Family returns the probe set family the collector was built with.
func (c *Collector) Family() Family {
	return c.family
}

// ClearCache drops the cached identity so the next Fingerprint call
// re-collects.
func (c *Collector) ClearCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cachedID = ""
	c.cacheExpiry = time.Time{}
}

// Hash reduces a component mapping to the device identity: present entries
// are sorted by key, concatenated as "key:value|" and digested with SHA-256.
// The lowercase hex result is identical for any insertion order of the same
// present set. An empty mapping digests the empty buffer, which is still a
// valid identity.
func Hash(components Components) string {
	keys := make([]string, 0, len(components))
	for k, v := range components {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf strings.Builder
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteString(":")
		buf.WriteString(components[k])
		buf.WriteString("|")
	}

	digest := sha256.Sum256([]byte(buf.String()))
	return hex.EncodeToString(digest[:])
}
