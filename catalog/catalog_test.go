package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeCatalogs(t *testing.T, dir string, prompts []Prompt, sounds []Sound) {
	t.Helper()
	promptBytes, err := json.Marshal(prompts)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, promptsFile), promptBytes, 0o644))
	soundBytes, err := json.Marshal(sounds)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, soundsFile), soundBytes, 0o644))
}

func testPrompts(n int, explicitEvery int) []Prompt {
	out := make([]Prompt, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Prompt{
			ID:       fmt.Sprintf("p%d", i),
			Text:     fmt.Sprintf("Prompt Number %d", i),
			Category: "general",
			Explicit: explicitEvery > 0 && i%explicitEvery == 0,
		})
	}
	return out
}

func testSounds(n int) []Sound {
	out := make([]Sound, 0, n)
	for i := 0; i < n; i++ {
		category := "animals"
		if i%2 == 1 {
			category = "machines"
		}
		out = append(out, Sound{
			ID:       fmt.Sprintf("s%d", i),
			Name:     fmt.Sprintf("Sound Number %d", i),
			Category: category,
			Explicit: i%5 == 0,
		})
	}
	return out
}

func TestSamplePromptsDistinct(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, testPrompts(20, 0), testSounds(10))
	c := New(dir, time.Minute)

	prompts := c.SamplePrompts(6, nil, true)
	require.Len(t, prompts, 6)

	seen := make(map[string]bool)
	for _, p := range prompts {
		assert.False(t, seen[p.ID], "duplicate prompt %s in sample", p.ID)
		seen[p.ID] = true
	}
}

func TestSamplePromptsExcludesUsed(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, testPrompts(10, 0), nil)
	c := New(dir, time.Minute)

	used := map[string]bool{"p0": true, "p1": true, "p2": true}
	prompts := c.SamplePrompts(6, used, true)
	require.Len(t, prompts, 6)
	for _, p := range prompts {
		assert.False(t, used[p.ID], "sampled used prompt %s", p.ID)
	}
}

func TestSamplePromptsFallsBackWhenExhausted(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, testPrompts(8, 0), nil)
	c := New(dir, time.Minute)

	used := make(map[string]bool)
	for i := 0; i < 6; i++ {
		used[fmt.Sprintf("p%d", i)] = true
	}
	// Only two unused remain; the full pool is used instead.
	prompts := c.SamplePrompts(6, used, true)
	assert.Len(t, prompts, 6)
}

func TestSamplePromptsExplicitFilter(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, testPrompts(20, 2), nil)
	c := New(dir, time.Minute)

	prompts := c.SamplePrompts(10, nil, false)
	require.Len(t, prompts, 10)
	for _, p := range prompts {
		assert.False(t, p.Explicit)
	}
}

func TestSampleSoundsByCategory(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, nil, testSounds(20))
	c := New(dir, time.Minute)

	sounds := c.SampleSounds(5, "animals", true)
	require.Len(t, sounds, 5)
	for _, s := range sounds {
		assert.Equal(t, "animals", s.Category)
	}
}

func TestEmptyCatalogFailsSoft(t *testing.T) {
	c := New(t.TempDir(), time.Minute)
	assert.Empty(t, c.SamplePrompts(6, nil, true))
	assert.Empty(t, c.SampleSounds(10, "", true))
	assert.Empty(t, c.Categories())
}

func TestCategories(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, nil, testSounds(10))
	c := New(dir, time.Minute)
	assert.Equal(t, []string{"animals", "machines"}, c.Categories())
}

func TestDeduplicatesByNormalizedName(t *testing.T) {
	dir := t.TempDir()
	prompts := []Prompt{
		{ID: "a", Text: "The Same Prompt"},
		{ID: "b", Text: `"the same prompt"`},
		{ID: "c", Text: "Another Prompt"},
	}
	writeCatalogs(t, dir, prompts, nil)
	c := New(dir, time.Minute)

	sampled := c.SamplePrompts(10, nil, true)
	assert.Len(t, sampled, 2)
}

func TestDiscardsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	prompts := []Prompt{
		{ID: "", Text: "No Identifier"},
		{ID: "x", Text: "   "},
		{ID: "ok", Text: "Fine"},
	}
	writeCatalogs(t, dir, prompts, nil)
	c := New(dir, time.Minute)

	sampled := c.SamplePrompts(10, nil, true)
	require.Len(t, sampled, 1)
	assert.Equal(t, "ok", sampled[0].ID)
}

func TestInvalidateReloads(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, testPrompts(3, 0), nil)
	c := New(dir, time.Hour)

	require.Len(t, c.SamplePrompts(10, nil, true), 3)

	writeCatalogs(t, dir, testPrompts(5, 0), nil)
	// Cache is still warm, so the old view persists until invalidated.
	require.Len(t, c.SamplePrompts(10, nil, true), 3)

	c.Invalidate()
	assert.Len(t, c.SamplePrompts(10, nil, true), 5)
}

func TestSampleSoundsNeverExceedsPool(t *testing.T) {
	dir := t.TempDir()
	writeCatalogs(t, dir, nil, testSounds(4))
	c := New(dir, time.Minute)

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		sounds := c.SampleSounds(n, "", true)
		if n <= 0 {
			assert.Empty(t, sounds)
			return
		}
		assert.LessOrEqual(t, len(sounds), 4)
		seen := make(map[string]bool)
		for _, s := range sounds {
			assert.False(t, seen[s.ID])
			seen[s.ID] = true
		}
	})
}
