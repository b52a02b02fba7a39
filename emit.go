package emit

import (
	"context"
	"net/http"

	"github.com/wippyai/emit/engine"
	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/importmap"
	"github.com/wippyai/emit/loader"
	"github.com/wippyai/emit/locate"
)

// BundleType selects the emitted program shape
type BundleType = engine.BundleType

const (
	// TypeModule emits a single flattened ES module.
	TypeModule = engine.TypeModule
	// TypeClassic emits a single script wrapped in an IIFE.
	TypeClassic = engine.TypeClassic
)

// Options are shared by Bundle and Transpile
type Options struct {
	// Load overrides module loading. Nil uses the default fetcher.
	Load loader.Loader
	// ImportMap supplies specifier remapping: inline data or a file
	// reference. Nil means no import map.
	ImportMap importmap.Source
	// CompilerOptions tune code generation. Nil means engine defaults.
	CompilerOptions *CompilerOptions
	// Cache is forwarded verbatim on every load. Empty means CacheUse.
	Cache loader.CacheSetting
	// Engine overrides the compiler. Nil uses the native esbuild engine.
	Engine engine.Engine
	// Client overrides the HTTP client of the default fetcher.
	Client *http.Client
	// AllowRemote permits the default fetcher to reach http(s) modules.
	AllowRemote bool
}

// BundleOptions configure a Bundle call
type BundleOptions struct {
	Options
	// Type selects module or classic output. Empty means module.
	Type BundleType
	// Minify shrinks the emitted bundle.
	Minify bool
}

// TranspileOptions configure a Transpile call
type TranspileOptions struct {
	Options
}

// BundleEmit is the outcome of a bundle: the code and, when the options ask
// for an external source map, the map alongside it.
type BundleEmit struct {
	Code string
	Map  string
}

// Bundle compiles the graph rooted at root into a single output. Option
// validation happens first and synchronously; nothing is resolved or loaded
// when the options are invalid. The engine is called exactly once and its
// error, when it fails, is returned as-is.
func Bundle(ctx context.Context, root locate.Location, opts BundleOptions) (*BundleEmit, error) {
	if err := opts.CompilerOptions.Validate(); err != nil {
		return nil, err
	}
	switch opts.Type {
	case "", TypeModule, TypeClassic:
	default:
		return nil, errors.Unsupported("bundle type %q", opts.Type)
	}

	inv, err := prepare(ctx, root, &opts.Options)
	if err != nil {
		return nil, err
	}

	res, err := inv.engine.Bundle(ctx, &engine.BundleRequest{
		Load:                inv.load,
		ImportMap:           inv.importMap,
		Root:                inv.root,
		Cache:               inv.cache,
		Type:                opts.Type,
		CompilerOptionsJSON: inv.optionsJSON,
		Minify:              opts.Minify,
	})
	if err != nil {
		return nil, err
	}
	return &BundleEmit{Code: res.Code, Map: res.Map}, nil
}

// Transpile compiles every module of the graph rooted at root on its own.
// The result maps each module's canonical URL to its emitted code, with a
// "<url>.map" entry per module when the options ask for external source
// maps.
func Transpile(ctx context.Context, root locate.Location, opts TranspileOptions) (map[string]string, error) {
	if err := opts.CompilerOptions.Validate(); err != nil {
		return nil, err
	}

	inv, err := prepare(ctx, root, &opts.Options)
	if err != nil {
		return nil, err
	}

	return inv.engine.Transpile(ctx, &engine.TranspileRequest{
		Load:                inv.load,
		ImportMap:           inv.importMap,
		Root:                inv.root,
		Cache:               inv.cache,
		CompilerOptionsJSON: inv.optionsJSON,
	})
}

// invocation holds the resolved inputs of one engine call
type invocation struct {
	load        loader.Loader
	importMap   *importmap.Serialized
	engine      engine.Engine
	root        string
	cache       loader.CacheSetting
	optionsJSON []byte
}

// prepare resolves everything the engine needs: the canonical root URL, the
// bridge-wrapped loader, the serialized import map and the marshaled
// options. The import map goes through the same loader as modules.
func prepare(ctx context.Context, root locate.Location, o *Options) (*invocation, error) {
	cache := o.Cache
	if cache == "" {
		cache = loader.CacheUse
	}

	inner := o.Load
	if inner == nil {
		inner = loader.NewFetch(loader.FetchOptions{Client: o.Client, AllowRemote: o.AllowRemote})
	}
	bridged := loader.NewBridge(inner)

	rootURL, err := locate.Resolve(root, "")
	if err != nil {
		return nil, err
	}

	im, err := importmap.Resolve(ctx, o.ImportMap, bridged, cache)
	if err != nil {
		return nil, err
	}

	optionsJSON, err := o.CompilerOptions.marshal()
	if err != nil {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidOptions).
			Detail("serialize compiler options").
			Cause(err).
			Build()
	}

	eng := o.Engine
	if eng == nil {
		eng = engine.NewEsbuild()
	}

	return &invocation{
		load:        bridged,
		importMap:   im,
		engine:      eng,
		root:        rootURL.String(),
		cache:       cache,
		optionsJSON: optionsJSON,
	}, nil
}
