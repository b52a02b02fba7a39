// Package imports applies a serialized import map during module resolution.
// Matching follows the import-map rules the engine needs: exact entries,
// trailing-slash prefix entries, and scopes keyed by referrer prefix with
// the most specific scope winning.
package imports

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/wippyai/emit/importmap"
)

type document struct {
	Imports map[string]string            `json:"imports"`
	Scopes  map[string]map[string]string `json:"scopes"`
}

type scope struct {
	prefix  string
	entries map[string]string
}

// Map is a parsed import map ready for specifier resolution
type Map struct {
	base    *url.URL
	imports map[string]string
	scopes  []scope
}

// Parse decodes a serialized import map. A nil input yields a nil Map, on
// which Resolve never matches.
func Parse(s *importmap.Serialized) (*Map, error) {
	if s == nil {
		return nil, nil
	}

	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse import map base %q: %w", s.BaseURL, err)
	}

	var doc document
	if err := json.Unmarshal([]byte(s.JSONString), &doc); err != nil {
		return nil, fmt.Errorf("parse import map body: %w", err)
	}

	m := &Map{base: base, imports: doc.Imports}
	for prefix, entries := range doc.Scopes {
		m.scopes = append(m.scopes, scope{prefix: prefix, entries: entries})
	}
	// Longest prefix first so the most specific scope wins.
	sort.Slice(m.scopes, func(i, j int) bool {
		return len(m.scopes[i].prefix) > len(m.scopes[j].prefix)
	})

	return m, nil
}

// Resolve maps a specifier through the import map. The referrer is the
// importing module's canonical URL, used for scope selection. The second
// return reports whether any entry matched.
func (m *Map) Resolve(specifier, referrer string) (string, bool) {
	if m == nil {
		return "", false
	}

	for _, sc := range m.scopes {
		if !m.scopeApplies(sc.prefix, referrer) {
			continue
		}
		if target, ok := matchEntries(sc.entries, specifier); ok {
			return m.resolveTarget(target)
		}
	}

	if target, ok := matchEntries(m.imports, specifier); ok {
		return m.resolveTarget(target)
	}

	return "", false
}

func (m *Map) scopeApplies(prefix, referrer string) bool {
	abs := prefix
	if u, err := m.base.Parse(prefix); err == nil {
		abs = u.String()
	}
	if abs == referrer {
		return true
	}
	return strings.HasSuffix(abs, "/") && strings.HasPrefix(referrer, abs)
}

// matchEntries finds the entry for a specifier: exact first, then the
// longest trailing-slash prefix entry with the remainder appended.
func matchEntries(entries map[string]string, specifier string) (string, bool) {
	if target, ok := entries[specifier]; ok {
		return target, true
	}

	bestKey := ""
	for key := range entries {
		if !strings.HasSuffix(key, "/") || !strings.HasPrefix(specifier, key) {
			continue
		}
		if len(key) > len(bestKey) {
			bestKey = key
		}
	}
	if bestKey == "" {
		return "", false
	}
	return entries[bestKey] + specifier[len(bestKey):], true
}

func (m *Map) resolveTarget(target string) (string, bool) {
	u, err := m.base.Parse(target)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
