package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// AudioCache is a thread-safe two-tier cache (memory, then disk) for
// synthesized replies, keyed by sha256(voice + ":" + text).
//
// The disk layer is always read when cacheDir is set; new entries are only
// written to it when diskWrite is true.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string][]byte
	log       *logger.Logger
	cacheDir  string
	diskWrite bool
	hits      int64
	misses    int64
}

// NewAudioCache creates an audio cache. An empty cacheDir disables the disk layer.
func NewAudioCache(cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string][]byte),
		log:       log,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}
	return c
}

// Get returns cached audio for voice and text.
func (c *AudioCache) Get(voice, text string) ([]byte, bool) {
	key := hashKey(voice, text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.count(true)
		c.log.Debug("cache hit (mem): %s (%d bytes)", truncateForLog(text, 40), len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, err := os.ReadFile(c.diskPath(key)); err == nil {
			c.mu.Lock()
			c.entries[key] = diskData
			c.mu.Unlock()
			c.count(true)
			c.log.Debug("cache hit (disk): %s (%d bytes)", truncateForLog(text, 40), len(diskData))
			return diskData, true
		}
	}

	c.count(false)
	return nil, false
}

// Put stores audio for voice and text.
func (c *AudioCache) Put(voice, text string, audio []byte) {
	key := hashKey(voice, text)

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", truncateForLog(text, 40), len(audio), size)

	if c.cacheDir == "" || !c.diskWrite {
		return
	}
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	}
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

func hashKey(voice, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + text))
	return hex.EncodeToString(h[:])
}

// ── Cached synthesizer ──────────────────────────────────────────

// CachedSynthesizer serves repeated answers from an AudioCache.
type CachedSynthesizer struct {
	next  domain.Synthesizer
	cache *AudioCache
}

var _ domain.Synthesizer = (*CachedSynthesizer)(nil)

// NewCachedSynthesizer wraps next with cache.
func NewCachedSynthesizer(next domain.Synthesizer, cache *AudioCache) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, cache: cache}
}

// Synthesize returns cached audio or asks next and caches a non-empty result.
func (s *CachedSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if audio, ok := s.cache.Get(voice, text); ok {
		return audio, nil
	}
	audio, err := s.next.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if len(audio) > 0 {
		s.cache.Put(voice, text, audio)
	}
	return audio, nil
}
