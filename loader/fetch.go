package loader

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/locate"
)

// FetchOptions configures the default loader
type FetchOptions struct {
	// Client overrides the HTTP client used for http(s) specifiers.
	Client *http.Client
	// AllowRemote permits http(s) fetches. File specifiers always work.
	AllowRemote bool
}

// Fetch is the default loader. It reads file: specifiers from disk, fetches
// http(s): specifiers over the network, and resolves node:/npm:/jsr:
// specifiers as built-in or external without loading content.
//
// Fetch keeps no cache of its own; a disk or memory cache is the concern of
// whatever loader wraps or replaces it. CacheOnly therefore fails remote
// loads outright, since nothing cached can exist here.
type Fetch struct {
	client      *http.Client
	allowRemote bool
}

// NewFetch creates the default loader
func NewFetch(opts FetchOptions) *Fetch {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetch{client: client, allowRemote: opts.AllowRemote}
}

// Load implements Loader
func (f *Fetch) Load(ctx context.Context, specifier string, isDynamic bool, cache CacheSetting) (*Response, error) {
	u, err := url.Parse(specifier)
	if err != nil {
		return nil, errors.LoadFailed(specifier, err)
	}

	switch u.Scheme {
	case "file":
		return f.loadFile(u, specifier)
	case "http", "https":
		return f.loadRemote(ctx, specifier, cache)
	case "node":
		return BuiltIn(specifier), nil
	case "npm", "jsr":
		return External(specifier), nil
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Specifier(specifier).
			Detail("unsupported scheme %q", u.Scheme).
			Build()
	}
}

func (f *Fetch) loadFile(u *url.URL, specifier string) (*Response, error) {
	p, err := locate.FilePath(u)
	if err != nil {
		return nil, errors.LoadFailed(specifier, err)
	}

	content, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.LoadFailed(specifier, err)
	}

	return Module(specifier, content), nil
}

func (f *Fetch) loadRemote(ctx context.Context, specifier string, cache CacheSetting) (*Response, error) {
	if !f.allowRemote {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Specifier(specifier).
			Detail("remote modules are disabled").
			Build()
	}
	if cache == CacheOnly {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Specifier(specifier).
			Detail("specifier is not cached and the cache setting forbids fetching").
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, specifier, nil)
	if err != nil {
		return nil, errors.LoadFailed(specifier, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.LoadFailed(specifier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Specifier(specifier).
			Detail("unexpected status %d", resp.StatusCode).
			Build()
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.LoadFailed(specifier, err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	out := Module(specifier, content)
	out.Headers = headers
	return out, nil
}
