package lipsync

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// PatternCache memoises generated patterns by utterance text. Interviewers
// repeat prompts, so the same lines are lowered again and again.
type PatternCache struct {
	cache *lru.Cache[string, []Step]
}

// NewPatternCache creates a PatternCache holding up to size patterns. A
// non-positive size disables caching.
func NewPatternCache(size int) (*PatternCache, error) {
	if size <= 0 {
		return &PatternCache{}, nil
	}

	c, err := lru.New[string, []Step](size)
	if err != nil {
		return nil, err
	}

	return &PatternCache{cache: c}, nil
}

// Pattern returns the steps for text, generating them on a miss. Callers
// must not modify the returned slice.
func (pc *PatternCache) Pattern(text string) []Step {
	if pc == nil || pc.cache == nil {
		return GeneratePattern(text)
	}

	if steps, ok := pc.cache.Get(text); ok {
		return steps
	}

	steps := GeneratePattern(text)
	pc.cache.Add(text, steps)

	return steps
}

// Len returns the number of cached patterns.
func (pc *PatternCache) Len() int {
	if pc == nil || pc.cache == nil {
		return 0
	}
	return pc.cache.Len()
}

// Purge drops every cached pattern.
func (pc *PatternCache) Purge() {
	if pc == nil || pc.cache == nil {
		return
	}
	pc.cache.Purge()
}
