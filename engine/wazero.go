package engine

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/importmap"
	"github.com/wippyai/emit/loader"
)

// Guest export names. The compiler module exposes bundle/transpile entry
// points plus an allocator; cabi_realloc is probed first with a plain alloc
// fallback for engines built without the canonical ABI shim.
const (
	hostModuleName = "emit"
	hostLoadName   = "load"
	cabiRealloc    = "cabi_realloc"
	simpleAlloc    = "alloc"
)

// Cache setting codes on the host load call
const (
	cacheCodeOnly uint32 = iota
	cacheCodeUse
	cacheCodeReload
)

// WazeroEngine runs a prebuilt compiler WASM binary. Each Bundle/Transpile
// call instantiates the module fresh, writes a JSON request into guest
// memory and reads a JSON envelope back; while the call runs, the guest
// fetches modules through the exported load host function, which routes to
// the loader carried on the call's context.
type WazeroEngine struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// NewWazeroEngine compiles the engine binary and registers the load host
// module. It fails fast on an invalid binary.
func NewWazeroEngine(ctx context.Context, compilerWasm []byte) (*WazeroEngine, error) {
	r := wazero.NewRuntime(ctx)

	_, err := r.NewHostModuleBuilder(hostModuleName).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostLoad),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI64}).
		Export(hostLoadName).
		Instantiate(ctx)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Engine(fmt.Errorf("register host module: %w", err))
	}

	compiled, err := r.CompileModule(ctx, compilerWasm)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Engine(fmt.Errorf("compile engine module: %w", err))
	}

	return &WazeroEngine{runtime: r, compiled: compiled}, nil
}

// Close releases the underlying runtime
func (e *WazeroEngine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// callState carries one invocation's loader across the guest boundary. Load
// failures are recorded here so the original error value, not its guest
// rendering, is what the caller sees.
type callState struct {
	load    loader.Loader
	loadErr error
	mu      sync.Mutex
}

func (cs *callState) fail(err error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.loadErr == nil {
		cs.loadErr = err
	}
}

func (cs *callState) err() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.loadErr
}

type callStateKey struct{}

func withCallState(ctx context.Context, cs *callState) context.Context {
	return context.WithValue(ctx, callStateKey{}, cs)
}

func callStateFrom(ctx context.Context) *callState {
	cs, _ := ctx.Value(callStateKey{}).(*callState)
	return cs
}

// wireLoadResponse is the load result shape crossing into the guest.
// Content is a byte sequence; the JSON encoding keeps it representable in
// the engine's serialization format.
type wireLoadResponse struct {
	Headers   map[string]string `json:"headers,omitempty"`
	Kind      string            `json:"kind"`
	Specifier string            `json:"specifier"`
	Content   []byte            `json:"content,omitempty"`
}

// hostLoad services one guest load request:
// (specifierPtr, specifierLen, isDynamic, cacheCode) -> packed ptr/len of
// the response JSON, or 0 for not found.
func hostLoad(ctx context.Context, mod api.Module, stack []uint64) {
	specPtr := uint32(stack[0])
	specLen := uint32(stack[1])
	isDynamic := uint32(stack[2]) != 0
	cache := cacheFromCode(uint32(stack[3]))

	stack[0] = 0

	cs := callStateFrom(ctx)
	if cs == nil {
		return
	}

	spec, ok := mod.Memory().Read(specPtr, specLen)
	if !ok {
		cs.fail(errors.Engine(goerrors.New("load request specifier out of bounds")))
		return
	}
	specifier := string(spec)

	resp, err := cs.load.Load(ctx, specifier, isDynamic, cache)
	if err != nil {
		cs.fail(err)
		return
	}
	if resp == nil {
		return
	}

	wire := wireLoadResponse{
		Kind:      string(resp.Kind),
		Specifier: resp.Specifier,
		Headers:   resp.Headers,
		Content:   resp.Content,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		cs.fail(errors.Engine(err))
		return
	}

	ptr, err := guestAlloc(ctx, mod, uint32(len(data)))
	if err != nil {
		cs.fail(err)
		return
	}
	if !mod.Memory().Write(ptr, data) {
		cs.fail(errors.Engine(goerrors.New("load response write out of bounds")))
		return
	}

	stack[0] = packPtrLen(ptr, uint32(len(data)))
}

// guestAlloc allocates guest memory through whichever allocator the engine
// module exports
func guestAlloc(ctx context.Context, mod api.Module, size uint32) (uint32, error) {
	if fn := mod.ExportedFunction(cabiRealloc); fn != nil {
		res, err := fn.Call(ctx, 0, 0, 1, uint64(size))
		if err != nil {
			return 0, errors.Engine(err)
		}
		return uint32(res[0]), nil
	}
	if fn := mod.ExportedFunction(simpleAlloc); fn != nil {
		res, err := fn.Call(ctx, uint64(size))
		if err != nil {
			return 0, errors.Engine(err)
		}
		return uint32(res[0]), nil
	}
	return 0, errors.Engine(goerrors.New("engine module exports no allocator"))
}

func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

func unpackPtrLen(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

func cacheFromCode(code uint32) loader.CacheSetting {
	switch code {
	case cacheCodeOnly:
		return loader.CacheOnly
	case cacheCodeReload:
		return loader.CacheReload
	default:
		return loader.CacheUse
	}
}

type wireBundleRequest struct {
	ImportMap       *importmap.Serialized `json:"importMap,omitempty"`
	Root            string                `json:"root"`
	Type            string                `json:"type"`
	CacheSetting    string                `json:"cacheSetting"`
	CompilerOptions json.RawMessage       `json:"compilerOptions,omitempty"`
	Minify          bool                  `json:"minify"`
}

type wireTranspileRequest struct {
	ImportMap       *importmap.Serialized `json:"importMap,omitempty"`
	Root            string                `json:"root"`
	CacheSetting    string                `json:"cacheSetting"`
	CompilerOptions json.RawMessage       `json:"compilerOptions,omitempty"`
}

// wireEnvelope is the guest's reply: exactly one of ok or error is set
type wireEnvelope struct {
	Ok    json.RawMessage `json:"ok,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Bundle implements Engine
func (e *WazeroEngine) Bundle(ctx context.Context, req *BundleRequest) (*BundleResult, error) {
	bundleType := req.Type
	if bundleType == "" {
		bundleType = TypeModule
	}

	raw, err := e.invoke(ctx, "bundle", wireBundleRequest{
		Root:            req.Root,
		Type:            string(bundleType),
		Minify:          req.Minify,
		CacheSetting:    string(req.Cache),
		ImportMap:       req.ImportMap,
		CompilerOptions: req.CompilerOptionsJSON,
	}, &callState{load: req.Load})
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Map  string `json:"map"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Engine(fmt.Errorf("decode bundle result: %w", err))
	}
	return &BundleResult{Code: result.Code, Map: result.Map}, nil
}

// Transpile implements Engine
func (e *WazeroEngine) Transpile(ctx context.Context, req *TranspileRequest) (map[string]string, error) {
	raw, err := e.invoke(ctx, "transpile", wireTranspileRequest{
		Root:            req.Root,
		CacheSetting:    string(req.Cache),
		ImportMap:       req.ImportMap,
		CompilerOptions: req.CompilerOptionsJSON,
	}, &callState{load: req.Load})
	if err != nil {
		return nil, err
	}

	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Engine(fmt.Errorf("decode transpile result: %w", err))
	}
	return result, nil
}

// invoke runs one guest entry point against a fresh instance
func (e *WazeroEngine) invoke(ctx context.Context, export string, request any, cs *callState) (json.RawMessage, error) {
	ctx = withCallState(ctx, cs)

	mod, err := e.runtime.InstantiateModule(ctx, e.compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Engine(fmt.Errorf("instantiate engine module: %w", err))
	}
	defer mod.Close(ctx)

	reqJSON, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Engine(err)
	}

	ptr, err := guestAlloc(ctx, mod, uint32(len(reqJSON)))
	if err != nil {
		return nil, err
	}
	if !mod.Memory().Write(ptr, reqJSON) {
		return nil, errors.Engine(goerrors.New("request write out of bounds"))
	}

	fn := mod.ExportedFunction(export)
	if fn == nil {
		return nil, errors.Engine(fmt.Errorf("engine module does not export %q", export))
	}

	Logger().Debug("invoking engine", zap.String("export", export))
	res, err := fn.Call(ctx, uint64(ptr), uint64(len(reqJSON)))
	// A loader failure during the call is the failure, whatever the guest
	// turned it into.
	if loadErr := cs.err(); loadErr != nil {
		return nil, loadErr
	}
	if err != nil {
		return nil, errors.Engine(err)
	}

	respPtr, respLen := unpackPtrLen(res[0])
	data, ok := mod.Memory().Read(respPtr, respLen)
	if !ok {
		return nil, errors.Engine(goerrors.New("response read out of bounds"))
	}

	var envelope wireEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Engine(fmt.Errorf("decode engine response: %w", err))
	}
	if envelope.Error != "" {
		return nil, errors.Engine(goerrors.New(envelope.Error))
	}
	return envelope.Ok, nil
}
