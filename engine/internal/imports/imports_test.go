package imports

import (
	"testing"

	"github.com/wippyai/emit/importmap"
)

func mustParse(t *testing.T, s *importmap.Serialized) *Map {
	t.Helper()
	m, err := Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParse_Nil(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Resolve("foo", "file:///a.ts"); ok {
		t.Error("nil map resolved a specifier")
	}
}

func TestResolve_Imports(t *testing.T) {
	m := mustParse(t, &importmap.Serialized{
		BaseURL:    "file:///app/config/",
		JSONString: `{"imports":{"foo":"./foo.ts","lib/":"./vendor/lib/"}}`,
	})

	tests := []struct {
		name      string
		specifier string
		want      string
		ok        bool
	}{
		{"exact match resolves against map dir", "foo", "file:///app/config/foo.ts", true},
		{"prefix match keeps remainder", "lib/util.ts", "file:///app/config/vendor/lib/util.ts", true},
		{"no entry", "bar", "", false},
		{"prefix requires trailing slash key", "libx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve(tt.specifier, "file:///app/main.ts")
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.specifier, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestResolve_Scopes(t *testing.T) {
	m := mustParse(t, &importmap.Serialized{
		BaseURL: "file:///app/",
		JSONString: `{
			"imports": {"dep": "./dep.ts"},
			"scopes": {
				"./vendor/": {"dep": "./vendor/dep.ts"},
				"./vendor/deep/": {"dep": "./vendor/deep/dep.ts"}
			}
		}`,
	})

	tests := []struct {
		name     string
		referrer string
		want     string
	}{
		{"top level outside scopes", "file:///app/main.ts", "file:///app/dep.ts"},
		{"scope overrides imports", "file:///app/vendor/mod.ts", "file:///app/vendor/dep.ts"},
		{"most specific scope wins", "file:///app/vendor/deep/mod.ts", "file:///app/vendor/deep/dep.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Resolve("dep", tt.referrer)
			if !ok {
				t.Fatal("expected a match")
			}
			if got != tt.want {
				t.Errorf("Resolve(dep, %q) = %q, want %q", tt.referrer, got, tt.want)
			}
		})
	}
}

func TestParse_BadJSON(t *testing.T) {
	if _, err := Parse(&importmap.Serialized{BaseURL: "file:///a/", JSONString: "{"}); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
