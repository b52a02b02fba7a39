// Package emit bundles and transpiles JavaScript and TypeScript module
// graphs. A compile starts from a root location, discovers the graph through
// a pluggable loader, optionally rewrites specifiers through an import map,
// and hands the whole thing to a compiler engine that emits either a single
// bundle or one output per module.
//
// Architecture:
//
//	emit       - public Bundle/Transpile API and compiler options
//	locate     - locations: URLs and file paths resolved to canonical URLs
//	loader     - module loading: the Loader contract, default fetcher, bridge
//	importmap  - import-map sources and their serialized engine form
//	engine     - compiler boundary with esbuild and WASM implementations
//	errors     - structured errors carrying phase and kind
package emit
