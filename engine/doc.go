// Package engine defines the compiler boundary and its implementations.
//
// An Engine receives a canonical root URL, a loader, an optional serialized
// import map and opaque compiler options JSON, and produces either a single
// bundle or a per-module transpile map. Two implementations are provided:
// Esbuild drives the native esbuild pipeline, and WazeroEngine runs a
// prebuilt compiler WASM binary with module loads bridged back to the host.
package engine
