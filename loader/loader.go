package loader

import "context"

// CacheSetting tells a cache-backed loader how to treat cached content.
// It travels on every load request and crosses the engine boundary verbatim.
type CacheSetting string

const (
	// CacheOnly requires content to come from the cache; nothing is fetched.
	CacheOnly CacheSetting = "only"
	// CacheUse prefers cached content and fetches on a miss.
	CacheUse CacheSetting = "use"
	// CacheReload bypasses cached content and always refetches.
	CacheReload CacheSetting = "reload"
)

// Kind discriminates load responses. The engine uses it to decide whether a
// specifier participates in code generation at all, so a bridge must never
// translate one kind into another.
type Kind string

const (
	// KindModule carries fetched module content.
	KindModule Kind = "module"
	// KindExternal marks a specifier resolved outside the graph; its content
	// is never loaded.
	KindExternal Kind = "external"
	// KindBuiltIn marks a specifier satisfied by the runtime itself.
	KindBuiltIn Kind = "builtIn"
)

// Response is the result of loading one specifier. A nil *Response means the
// specifier was not found, which fails the surrounding compile.
//
// Only module responses carry content, as either Text or Content bytes.
// Bridge collapses Text into Content before the response crosses into the
// engine, whose marshaling layer accepts byte sequences only.
type Response struct {
	Headers   map[string]string
	Kind      Kind
	Specifier string
	Text      string
	Content   []byte
}

// Module builds a module response with byte content
func Module(specifier string, content []byte) *Response {
	return &Response{Kind: KindModule, Specifier: specifier, Content: content}
}

// ModuleText builds a module response with textual content
func ModuleText(specifier, text string) *Response {
	return &Response{Kind: KindModule, Specifier: specifier, Text: text}
}

// External builds a response for a specifier resolved externally
func External(specifier string) *Response {
	return &Response{Kind: KindExternal, Specifier: specifier}
}

// BuiltIn builds a response for a specifier the runtime provides
func BuiltIn(specifier string) *Response {
	return &Response{Kind: KindBuiltIn, Specifier: specifier}
}

// Loader fetches the content for one specifier on demand. The engine invokes
// it once per distinct module the graph discovers, plus once for a
// file-backed import map.
//
// Implementations must be reentrant-safe: the engine may issue several
// outstanding loads before earlier ones return. Returning (nil, nil) means
// not found.
type Loader interface {
	Load(ctx context.Context, specifier string, isDynamic bool, cache CacheSetting) (*Response, error)
}

// LoadFunc adapts a function to the Loader interface
type LoadFunc func(ctx context.Context, specifier string, isDynamic bool, cache CacheSetting) (*Response, error)

// Load implements Loader
func (f LoadFunc) Load(ctx context.Context, specifier string, isDynamic bool, cache CacheSetting) (*Response, error) {
	return f(ctx, specifier, isDynamic, cache)
}
