package importmap

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/loader"
	"github.com/wippyai/emit/locate"
)

// rejecting fails the test if any load happens.
func rejecting(t *testing.T) loader.Loader {
	t.Helper()
	return loader.LoadFunc(func(_ context.Context, specifier string, _ bool, _ loader.CacheSetting) (*loader.Response, error) {
		t.Fatalf("unexpected load of %q", specifier)
		return nil, nil
	})
}

func canned(resp *loader.Response, err error) loader.Loader {
	return loader.LoadFunc(func(context.Context, string, bool, loader.CacheSetting) (*loader.Response, error) {
		return resp, err
	})
}

func TestResolve_NilSource(t *testing.T) {
	got, err := Resolve(context.Background(), nil, rejecting(t), loader.CacheUse)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestResolve_InlineNeverLoads(t *testing.T) {
	src := Inline{
		BaseURL: "/app",
		Imports: map[string]string{"foo": "./foo.ts"},
		Scopes:  map[string]map[string]string{"/vendor/": {"bar": "./bar.ts"}},
	}

	got, err := Resolve(context.Background(), src, rejecting(t), loader.CacheUse)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != "file:///app/" {
		t.Errorf("baseUrl = %q, want file:///app/", got.BaseURL)
	}

	var doc struct {
		Imports map[string]string            `json:"imports"`
		Scopes  map[string]map[string]string `json:"scopes"`
	}
	if err := json.Unmarshal([]byte(got.JSONString), &doc); err != nil {
		t.Fatalf("jsonString is not JSON: %v", err)
	}
	if doc.Imports["foo"] != "./foo.ts" {
		t.Errorf("imports = %v", doc.Imports)
	}
	if doc.Scopes["/vendor/"]["bar"] != "./bar.ts" {
		t.Errorf("scopes = %v", doc.Scopes)
	}
}

func TestResolve_InlineDefaultsToWorkingDir(t *testing.T) {
	got, err := Resolve(context.Background(), Inline{}, rejecting(t), loader.CacheUse)
	if err != nil {
		t.Fatal(err)
	}

	wd, err := locate.WorkingDir()
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != wd.String() {
		t.Errorf("baseUrl = %q, want %q", got.BaseURL, wd.String())
	}
	if !strings.HasSuffix(got.BaseURL, "/") {
		t.Errorf("baseUrl %q lacks trailing slash", got.BaseURL)
	}
}

func TestResolve_RefLoadsMapFile(t *testing.T) {
	body := `{"imports":{"foo":"./foo.ts"}}`
	var gotSpecifier string
	var gotDynamic bool
	l := loader.LoadFunc(func(_ context.Context, specifier string, isDynamic bool, _ loader.CacheSetting) (*loader.Response, error) {
		gotSpecifier = specifier
		gotDynamic = isDynamic
		return loader.ModuleText(specifier, body), nil
	})

	got, err := Resolve(context.Background(), Ref{Location: locate.FromString("/app/config/map.json")}, l, loader.CacheUse)
	if err != nil {
		t.Fatal(err)
	}

	if gotSpecifier != "file:///app/config/map.json" {
		t.Errorf("loaded %q", gotSpecifier)
	}
	if gotDynamic {
		t.Error("import map fetch must not be a dynamic import")
	}
	// The map anchors to its own directory, not the working directory.
	if got.BaseURL != "file:///app/config/" {
		t.Errorf("baseUrl = %q, want file:///app/config/", got.BaseURL)
	}

	var doc struct {
		Imports map[string]string `json:"imports"`
	}
	if err := json.Unmarshal([]byte(got.JSONString), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Imports["foo"] != "./foo.ts" {
		t.Errorf("imports = %v", doc.Imports)
	}
}

func TestResolve_RefFailures(t *testing.T) {
	importMapErr := &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindImportMap}

	tests := []struct {
		name string
		l    loader.Loader
	}{
		{"not found", canned(nil, nil)},
		{"load error", canned(nil, goerrors.New("network down"))},
		{"non-module kind", canned(loader.External("file:///map.json"), nil)},
		{"invalid json", canned(loader.ModuleText("file:///map.json", "not json"), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(context.Background(), Ref{Location: locate.FromString("/map.json")}, tt.l, loader.CacheUse)
			if err == nil {
				t.Fatal("expected error")
			}
			if !goerrors.Is(err, importMapErr) {
				t.Errorf("expected import_map error, got %v", err)
			}
		})
	}
}

func TestResolve_RefPropagatesCause(t *testing.T) {
	cause := goerrors.New("network down")
	_, err := Resolve(context.Background(), Ref{Location: locate.FromString("/map.json")}, canned(nil, cause), loader.CacheUse)
	if !goerrors.Is(err, cause) {
		t.Errorf("cause not preserved: %v", err)
	}
}
