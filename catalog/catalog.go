package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lguibr/cacophony/log"
)

// Prompt is one entry of the prompt catalog. Text may contain the "<ANY>"
// placeholder and _italic_ markup; both are preserved as loaded.
type Prompt struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Audio    string `json:"audio,omitempty"`
	Explicit bool   `json:"explicit"`
}

// Sound is one entry of the sound catalog.
type Sound struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Explicit bool   `json:"explicit"`
}

const (
	promptsFile = "prompts.json"
	soundsFile  = "sounds.json"
)

// Catalog loads the on-disk prompt and sound catalogs and serves random
// samples from them. The parsed form is cached and reloaded after the TTL
// expires or when Invalidate is called.
type Catalog struct {
	dir    string
	ttl    time.Duration
	logger zerolog.Logger

	mu       sync.RWMutex
	prompts  []Prompt
	sounds   []Sound
	loadedAt time.Time
}

// New creates a catalog rooted at dir. Nothing is loaded until first use.
func New(dir string, ttl time.Duration) *Catalog {
	return &Catalog{
		dir:    dir,
		ttl:    ttl,
		logger: log.WithComponent("catalog"),
	}
}

// Invalidate drops the cached catalogs so the next access reloads from disk.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

// ensureLoaded reloads the catalogs when the cache is cold or expired.
// Load failures are soft: the affected catalog comes back empty.
func (c *Catalog) ensureLoaded() {
	c.mu.RLock()
	fresh := !c.loadedAt.IsZero() && time.Since(c.loadedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return
	}

	prompts := loadPrompts(c.logger, filepath.Join(c.dir, promptsFile))
	sounds := loadSounds(c.logger, filepath.Join(c.dir, soundsFile))

	c.mu.Lock()
	c.prompts = prompts
	c.sounds = sounds
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info().
		Int("prompts", len(prompts)).
		Int("sounds", len(sounds)).
		Msg("catalogs loaded")
}

func loadPrompts(logger zerolog.Logger, path string) []Prompt {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("prompt catalog unavailable")
		return nil
	}
	var entries []Prompt
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("prompt catalog unparsable")
		return nil
	}

	seen := make(map[string]bool, len(entries))
	out := make([]Prompt, 0, len(entries))
	for _, entry := range entries {
		entry.Text = NormalizeName(entry.Text)
		if entry.ID == "" || entry.Text == "" {
			continue
		}
		key := DedupKey(entry.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entry)
	}
	return out
}

func loadSounds(logger zerolog.Logger, path string) []Sound {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("sound catalog unavailable")
		return nil
	}
	var entries []Sound
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("sound catalog unparsable")
		return nil
	}

	seen := make(map[string]bool, len(entries))
	out := make([]Sound, 0, len(entries))
	for _, entry := range entries {
		entry.Name = NormalizeName(entry.Name)
		if entry.ID == "" || entry.Name == "" {
			continue
		}
		key := DedupKey(entry.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, entry)
	}
	return out
}

// SamplePrompts returns up to n distinct prompts, excluding ids in used and
// optionally filtering out explicit content. When the exclusion set leaves
// fewer than n candidates, sampling falls back to the full pool, still
// honoring the explicit filter. An empty catalog yields an empty slice.
func (c *Catalog) SamplePrompts(n int, used map[string]bool, allowExplicit bool) []Prompt {
	c.ensureLoaded()

	c.mu.RLock()
	defer c.mu.RUnlock()

	pool := make([]Prompt, 0, len(c.prompts))
	for _, p := range c.prompts {
		if !allowExplicit && p.Explicit {
			continue
		}
		if used[p.ID] {
			continue
		}
		pool = append(pool, p)
	}
	if len(pool) < n {
		pool = pool[:0]
		for _, p := range c.prompts {
			if !allowExplicit && p.Explicit {
				continue
			}
			pool = append(pool, p)
		}
	}

	return samplePrompts(pool, n)
}

// SampleSounds returns up to n distinct sounds, optionally restricted to a
// category and optionally filtering out explicit content.
func (c *Catalog) SampleSounds(n int, category string, allowExplicit bool) []Sound {
	c.ensureLoaded()

	c.mu.RLock()
	defer c.mu.RUnlock()

	pool := make([]Sound, 0, len(c.sounds))
	for _, s := range c.sounds {
		if !allowExplicit && s.Explicit {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		pool = append(pool, s)
	}

	return sampleSounds(pool, n)
}

// Categories lists the distinct sound categories, sorted.
func (c *Catalog) Categories() []string {
	c.ensureLoaded()

	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for _, s := range c.sounds {
		if s.Category != "" {
			seen[s.Category] = true
		}
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}
