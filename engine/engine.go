package engine

import (
	"context"

	"github.com/wippyai/emit/importmap"
	"github.com/wippyai/emit/loader"
)

// BundleType selects the emitted program shape
type BundleType string

const (
	// TypeModule emits a single flattened ES module.
	TypeModule BundleType = "module"
	// TypeClassic emits a single script wrapped in an IIFE.
	TypeClassic BundleType = "classic"
)

// BundleRequest carries the four semantic inputs of a bundle call: the
// canonical root URL, the bridge-wrapped loader the engine calls back into,
// the serialized import map (nil for none), and the compiler options as
// pre-marshaled JSON the engine interprets opaquely.
type BundleRequest struct {
	Load                loader.Loader
	ImportMap           *importmap.Serialized
	Root                string
	Cache               loader.CacheSetting
	Type                BundleType
	CompilerOptionsJSON []byte
	Minify              bool
}

// BundleResult is the raw outcome of a bundle call. Map is empty when no
// external source map was produced.
type BundleResult struct {
	Code string
	Map  string
}

// TranspileRequest mirrors BundleRequest without the bundle-shaping fields
type TranspileRequest struct {
	Load                loader.Loader
	ImportMap           *importmap.Serialized
	Root                string
	Cache               loader.CacheSetting
	CompilerOptionsJSON []byte
}

// Engine is the opaque compiler boundary. Implementations parse, build the
// module graph and generate code; during a call they invoke the request's
// loader once per discovered specifier. Exactly one engine call happens per
// emit invocation.
type Engine interface {
	Bundle(ctx context.Context, req *BundleRequest) (*BundleResult, error)
	Transpile(ctx context.Context, req *TranspileRequest) (map[string]string, error)
}
