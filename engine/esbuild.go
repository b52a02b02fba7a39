package engine

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net/url"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"

	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/engine/internal/imports"
	"github.com/wippyai/emit/loader"
)

// moduleNamespace marks graph modules whose content came through the loader,
// keeping esbuild's own filesystem resolution out of the build.
const moduleNamespace = "emit"

// Esbuild is the native engine. It drives esbuild's build pipeline while
// routing every module fetch through the request's loader: resolution
// applies the serialized import map, loading records the response content,
// and esbuild only ever sees what the loader returned.
type Esbuild struct{}

// NewEsbuild creates the native engine
func NewEsbuild() *Esbuild {
	return &Esbuild{}
}

// esbuildOptions is the engine-side view of the compiler options JSON.
// Fields the native engine cannot honor are ignored, matching the
// passthrough contract: unknown or unused values are the engine's business.
type esbuildOptions struct {
	JSX                string `json:"jsx"`
	JSXFactory         string `json:"jsxFactory"`
	JSXFragmentFactory string `json:"jsxFragmentFactory"`
	JSXImportSource    string `json:"jsxImportSource"`
	InlineSourceMap    bool   `json:"inlineSourceMap"`
	InlineSources      bool   `json:"inlineSources"`
	SourceMap          bool   `json:"sourceMap"`
}

func parseEsbuildOptions(raw []byte) (*esbuildOptions, error) {
	opts := &esbuildOptions{
		JSX:                "react",
		JSXFactory:         "React.createElement",
		JSXFragmentFactory: "React.Fragment",
	}
	if len(raw) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(raw, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// buildGraph records per-build loader responses so each specifier is loaded
// once and its content at load time is exactly what gets emitted.
type buildGraph struct {
	modules map[string]*loader.Response
	loadErr error
	mu      sync.Mutex
}

func newBuildGraph() *buildGraph {
	return &buildGraph{modules: make(map[string]*loader.Response)}
}

func (g *buildGraph) get(specifier string) *loader.Response {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modules[specifier]
}

func (g *buildGraph) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr == nil {
		g.loadErr = err
	}
}

func (g *buildGraph) firstErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadErr
}

// Bundle implements Engine
func (e *Esbuild) Bundle(ctx context.Context, req *BundleRequest) (*BundleResult, error) {
	opts, err := parseEsbuildOptions(req.CompilerOptionsJSON)
	if err != nil {
		return nil, errors.Engine(err)
	}
	im, err := imports.Parse(req.ImportMap)
	if err != nil {
		return nil, errors.Engine(err)
	}

	format := api.FormatESModule
	if req.Type == TypeClassic {
		format = api.FormatIIFE
	}

	sourcesContent := api.SourcesContentExclude
	if opts.InlineSources {
		sourcesContent = api.SourcesContentInclude
	}

	graph := newBuildGraph()
	result := api.Build(api.BuildOptions{
		EntryPoints:       []string{req.Root},
		Bundle:            true,
		Write:             false,
		Outfile:           "bundle.js",
		Format:            format,
		Sourcemap:         sourcemapMode(opts),
		SourcesContent:    sourcesContent,
		MinifyWhitespace:  req.Minify,
		MinifyIdentifiers: req.Minify,
		MinifySyntax:      req.Minify,
		JSX:               jsxMode(opts.JSX),
		JSXDev:            opts.JSX == "react-jsxdev",
		JSXFactory:        opts.JSXFactory,
		JSXFragment:       opts.JSXFragmentFactory,
		JSXImportSource:   opts.JSXImportSource,
		LogLevel:          api.LogLevelSilent,
		Plugins:           []api.Plugin{e.plugin(ctx, req.Load, im, req.Cache, graph)},
	})

	if err := graph.firstErr(); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, errors.Engine(buildError(result.Errors))
	}

	out := &BundleResult{}
	for _, f := range result.OutputFiles {
		if strings.HasSuffix(f.Path, ".map") {
			out.Map = string(f.Contents)
		} else {
			out.Code = string(f.Contents)
		}
	}

	Logger().Debug("bundle complete",
		zap.String("root", req.Root),
		zap.Int("modules", len(graph.modules)))
	return out, nil
}

// Transpile implements Engine. It walks the graph with a discovery build,
// then transpiles each recorded module on its own so every graph member
// appears in the output.
func (e *Esbuild) Transpile(ctx context.Context, req *TranspileRequest) (map[string]string, error) {
	opts, err := parseEsbuildOptions(req.CompilerOptionsJSON)
	if err != nil {
		return nil, errors.Engine(err)
	}
	im, err := imports.Parse(req.ImportMap)
	if err != nil {
		return nil, errors.Engine(err)
	}

	graph := newBuildGraph()
	discovery := api.Build(api.BuildOptions{
		EntryPoints: []string{req.Root},
		Bundle:      true,
		Write:       false,
		Outfile:     "graph.js",
		Format:      api.FormatESModule,
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{e.plugin(ctx, req.Load, im, req.Cache, graph)},
	})

	if err := graph.firstErr(); err != nil {
		return nil, err
	}
	if len(discovery.Errors) > 0 {
		return nil, errors.Engine(buildError(discovery.Errors))
	}

	sourcesContent := api.SourcesContentExclude
	if opts.InlineSources {
		sourcesContent = api.SourcesContentInclude
	}

	out := make(map[string]string, len(graph.modules))
	for specifier, resp := range graph.modules {
		transformed := api.Transform(string(resp.Content), api.TransformOptions{
			Loader:          contentLoader(specifier, resp.Headers),
			Format:          api.FormatESModule,
			Sourcefile:      specifier,
			Sourcemap:       sourcemapMode(opts),
			SourcesContent:  sourcesContent,
			JSX:             jsxMode(opts.JSX),
			JSXDev:          opts.JSX == "react-jsxdev",
			JSXFactory:      opts.JSXFactory,
			JSXFragment:     opts.JSXFragmentFactory,
			JSXImportSource: opts.JSXImportSource,
			LogLevel:        api.LogLevelSilent,
		})
		if len(transformed.Errors) > 0 {
			return nil, errors.Engine(buildError(transformed.Errors))
		}

		out[specifier] = string(transformed.Code)
		if opts.SourceMap && len(transformed.Map) > 0 {
			out[specifier+".map"] = string(transformed.Map)
		}
	}

	return out, nil
}

// plugin wires module resolution and loading into esbuild. Resolution and
// loading happen together in the resolve hook so the recorded content is
// exactly what the loader returned at the moment the graph discovered the
// specifier.
func (e *Esbuild) plugin(ctx context.Context, load loader.Loader, im *imports.Map, cache loader.CacheSetting, graph *buildGraph) api.Plugin {
	return api.Plugin{
		Name: "emit-loader",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				specifier := args.Path
				if args.Kind != api.ResolveEntryPoint {
					if mapped, ok := im.Resolve(specifier, args.Importer); ok {
						specifier = mapped
					}
					resolved, err := resolveSpecifier(specifier, args.Importer)
					if err != nil {
						return api.OnResolveResult{}, err
					}
					specifier = resolved
				}

				graph.mu.Lock()
				resp, seen := graph.modules[specifier]
				graph.mu.Unlock()

				if !seen {
					isDynamic := args.Kind == api.ResolveJSDynamicImport
					var err error
					resp, err = load.Load(ctx, specifier, isDynamic, cache)
					if err != nil {
						graph.setErr(err)
						return api.OnResolveResult{}, err
					}
					if resp == nil {
						err = errors.NotFound(specifier)
						graph.setErr(err)
						return api.OnResolveResult{}, err
					}
				}

				switch resp.Kind {
				case loader.KindModule:
					graph.mu.Lock()
					graph.modules[specifier] = resp
					graph.mu.Unlock()
					return api.OnResolveResult{Path: specifier, Namespace: moduleNamespace}, nil
				case loader.KindExternal, loader.KindBuiltIn:
					return api.OnResolveResult{Path: specifier, External: true}, nil
				default:
					err := errors.New(errors.PhaseLoad, errors.KindLoadFailed).
						Specifier(specifier).
						Detail("unknown response kind %q", resp.Kind).
						Build()
					graph.setErr(err)
					return api.OnResolveResult{}, err
				}
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: moduleNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				resp := graph.get(args.Path)
				if resp == nil {
					err := errors.NotFound(args.Path)
					graph.setErr(err)
					return api.OnLoadResult{}, err
				}
				contents := string(resp.Content)
				l := contentLoader(args.Path, resp.Headers)
				return api.OnLoadResult{Contents: &contents, Loader: l}, nil
			})
		},
	}
}

// resolveSpecifier turns an import specifier into a canonical URL relative
// to its importer. Bare specifiers that survived import-map mapping cannot
// be resolved.
func resolveSpecifier(specifier, importer string) (string, error) {
	if u, err := url.Parse(specifier); err == nil && u.IsAbs() {
		return u.String(), nil
	}

	if strings.HasPrefix(specifier, "/") ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../") {
		base, err := url.Parse(importer)
		if err != nil {
			return "", errors.Engine(err)
		}
		u, err := base.Parse(specifier)
		if err != nil {
			return "", errors.Engine(err)
		}
		return u.String(), nil
	}

	return "", errors.Engine(goerrors.New(
		"cannot resolve \"" + specifier + "\" from \"" + importer + "\""))
}

// contentLoader picks the esbuild content loader from the content-type
// header when present, otherwise from the specifier's extension.
func contentLoader(specifier string, headers map[string]string) api.Loader {
	for name, value := range headers {
		if !strings.EqualFold(name, "Content-Type") {
			continue
		}
		switch {
		case strings.Contains(value, "typescript"):
			return api.LoaderTS
		case strings.Contains(value, "javascript"):
			return api.LoaderJS
		case strings.Contains(value, "json"):
			return api.LoaderJSON
		}
	}

	path := specifier
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	switch {
	case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".mts"), strings.HasSuffix(path, ".cts"):
		return api.LoaderTS
	case strings.HasSuffix(path, ".tsx"):
		return api.LoaderTSX
	case strings.HasSuffix(path, ".jsx"):
		return api.LoaderJSX
	case strings.HasSuffix(path, ".json"):
		return api.LoaderJSON
	default:
		return api.LoaderJS
	}
}

// jsxMode maps the jsx compiler option onto esbuild's transform modes
func jsxMode(jsx string) api.JSX {
	switch jsx {
	case "react-jsx", "react-jsxdev":
		return api.JSXAutomatic
	case "preserve":
		return api.JSXPreserve
	default:
		return api.JSXTransform
	}
}

func sourcemapMode(opts *esbuildOptions) api.SourceMap {
	switch {
	case opts.InlineSourceMap:
		return api.SourceMapInline
	case opts.SourceMap:
		return api.SourceMapExternal
	default:
		return api.SourceMapNone
	}
}

func buildError(msgs []api.Message) error {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Text
	}
	return goerrors.New(strings.Join(parts, "; "))
}
