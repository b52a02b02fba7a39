package locate

import (
	goerrors "errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/emit/errors"
)

func TestResolve_URLStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"file url", "file:///dir/mod.ts", "file:///dir/mod.ts"},
		{"http url", "http://example.com/mod.ts", "http://example.com/mod.ts"},
		{"https url with query", "https://example.com/mod.ts?v=1", "https://example.com/mod.ts?v=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Resolve(FromString(tt.in), "")
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.in, err)
			}
			if u.String() != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, u.String(), tt.want)
			}
		})
	}
}

func TestResolve_Paths(t *testing.T) {
	tests := []struct {
		name string
		in   string
		base string
		want string
	}{
		{"absolute posix", "/dir/mod.ts", "", "file:///dir/mod.ts"},
		{"relative posix", "sub/mod.ts", "/base", "file:///base/sub/mod.ts"},
		{"dot relative", "./mod.ts", "/base", "file:///base/mod.ts"},
		{"parent relative", "../mod.ts", "/base/sub", "file:///base/mod.ts"},
		{"win32 drive backslash", `C:\dir\mod.ts`, "", "file:///C:/dir/mod.ts"},
		{"win32 drive forward slash", "C:/dir/mod.ts", "", "file:///C:/dir/mod.ts"},
		{"win32 relative", `sub\mod.ts`, "/base", "file:///base/sub/mod.ts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Resolve(FromString(tt.in), tt.base)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.in, err)
			}
			if u.String() != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.in, tt.base, u.String(), tt.want)
			}
		})
	}
}

func TestResolve_RelativeAnchorsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	u, err := Resolve(FromString("mod.ts"), "")
	if err != nil {
		t.Fatal(err)
	}

	want := "file://" + strings.ReplaceAll(filepath.Join(wd, "mod.ts"), `\`, "/")
	if u.String() != want {
		t.Errorf("Resolve(mod.ts) = %q, want %q", u.String(), want)
	}
}

func TestResolve_URLObjectIsCopied(t *testing.T) {
	orig, err := url.Parse("https://example.com/mod.ts")
	if err != nil {
		t.Fatal(err)
	}

	got, err := Resolve(FromURL(orig), "")
	if err != nil {
		t.Fatal(err)
	}

	if got == orig {
		t.Error("Resolve returned the caller's URL pointer")
	}
	if got.String() != orig.String() {
		t.Errorf("copy stringifies to %q, want %q", got.String(), orig.String())
	}

	got.Path = "/mutated.ts"
	if orig.Path != "/mod.ts" {
		t.Error("mutating the resolved URL changed the caller's value")
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	u, err := Resolve(FromString("/dir/mod.ts"), "")
	if err != nil {
		t.Fatal(err)
	}

	p, err := FilePath(u)
	if err != nil {
		t.Fatal(err)
	}
	if p != "/dir/mod.ts" {
		t.Errorf("round trip = %q, want /dir/mod.ts", p)
	}

	winURL, err := Resolve(FromString(`C:\dir\mod.ts`), "")
	if err != nil {
		t.Fatal(err)
	}
	p, err = FilePath(winURL)
	if err != nil {
		t.Fatal(err)
	}
	if p != "C:/dir/mod.ts" {
		t.Errorf("win32 round trip = %q, want C:/dir/mod.ts", p)
	}
}

func TestResolve_Invalid(t *testing.T) {
	_, err := Resolve(FromString(""), "")
	if err == nil {
		t.Fatal("expected error for empty location")
	}
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseResolve, Kind: errors.KindInvalidLocation}) {
		t.Errorf("expected invalid_location error, got %v", err)
	}

	if _, err := Resolve(FromURL(nil), ""); err == nil {
		t.Fatal("expected error for nil URL")
	}
}

func TestFilePath_RejectsNonFile(t *testing.T) {
	u, _ := url.Parse("https://example.com/mod.ts")
	if _, err := FilePath(u); err == nil {
		t.Fatal("expected error for non-file URL")
	}
}

func TestWorkingDir(t *testing.T) {
	u, err := WorkingDir()
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme != "file" {
		t.Errorf("scheme = %q, want file", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		t.Errorf("working directory URL %q lacks trailing slash", u.String())
	}
}
