package loader

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/wippyai/emit/errors"
)

func canned(resp *Response, err error) Loader {
	return LoadFunc(func(context.Context, string, bool, CacheSetting) (*Response, error) {
		return resp, err
	})
}

func TestBridge_TextBecomesBytes(t *testing.T) {
	b := NewBridge(canned(ModuleText("file:///a.ts", "export const a = 1;"), nil))

	resp, err := b.Load(context.Background(), "file:///a.ts", false, CacheUse)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindModule {
		t.Fatalf("kind = %q, want module", resp.Kind)
	}
	if resp.Text != "" {
		t.Error("text content survived normalization")
	}
	if string(resp.Content) != "export const a = 1;" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestBridge_StripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("export {};")...)
	b := NewBridge(canned(Module("file:///a.ts", src), nil))

	resp, err := b.Load(context.Background(), "file:///a.ts", false, CacheUse)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Content) != "export {};" {
		t.Errorf("content = %q, BOM not stripped", resp.Content)
	}
}

func TestBridge_KindPreserved(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want Kind
	}{
		{"external", External("npm:left-pad"), KindExternal},
		{"builtin", BuiltIn("node:fs"), KindBuiltIn},
		{"module", Module("file:///a.ts", []byte("x")), KindModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBridge(canned(tt.resp, nil))
			resp, err := b.Load(context.Background(), tt.resp.Specifier, false, CacheUse)
			if err != nil {
				t.Fatal(err)
			}
			if resp.Kind != tt.want {
				t.Errorf("kind = %q, want %q", resp.Kind, tt.want)
			}
		})
	}
}

func TestBridge_NotFoundPassesThrough(t *testing.T) {
	b := NewBridge(canned(nil, nil))
	resp, err := b.Load(context.Background(), "file:///missing.ts", false, CacheUse)
	if err != nil {
		t.Fatal(err)
	}
	if resp != nil {
		t.Errorf("expected nil response, got %+v", resp)
	}
}

func TestBridge_ErrorPassesThrough(t *testing.T) {
	boom := goerrors.New("disk on fire")
	b := NewBridge(canned(nil, boom))
	_, err := b.Load(context.Background(), "file:///a.ts", false, CacheUse)
	if !goerrors.Is(err, boom) {
		t.Errorf("expected underlying error, got %v", err)
	}
}

func TestBridge_UnknownKindRejected(t *testing.T) {
	b := NewBridge(canned(&Response{Kind: "mystery", Specifier: "file:///a.ts"}, nil))
	_, err := b.Load(context.Background(), "file:///a.ts", false, CacheUse)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !goerrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindLoadFailed}) {
		t.Errorf("expected load_failed error, got %v", err)
	}
	var e *errors.Error
	if !goerrors.As(err, &e) {
		t.Fatalf("expected a structured error, got %T", err)
	}
	if e.Specifier != "file:///a.ts" {
		t.Errorf("specifier = %q, want the failing module", e.Specifier)
	}
	if e.Cause != nil {
		t.Errorf("unexpected nested cause: %v", e.Cause)
	}
}

func TestBridge_DoesNotMutateOriginal(t *testing.T) {
	orig := ModuleText("file:///a.ts", "const x = 1;")
	b := NewBridge(canned(orig, nil))

	if _, err := b.Load(context.Background(), "file:///a.ts", false, CacheUse); err != nil {
		t.Fatal(err)
	}
	if orig.Text != "const x = 1;" || orig.Content != nil {
		t.Error("bridge mutated the loader's response value")
	}
}
