package importmap

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/wippyai/emit/errors"
	"github.com/wippyai/emit/loader"
	"github.com/wippyai/emit/locate"
)

// Source names where an import map comes from: inline data or a reference to
// a JSON map file. The union is closed; exactly one branch resolves per
// invocation and there is no field-level merging between the two. Because
// the API carries a single Source value, an inline map and a file reference
// cannot be supplied together: inline data wins by construction.
type Source interface {
	isSource()
}

// Inline is an import map supplied directly by the caller. Resolution never
// performs I/O.
type Inline struct {
	Imports map[string]string
	Scopes  map[string]map[string]string
	// BaseURL anchors relative targets. Empty means the process working
	// directory.
	BaseURL string
}

// Ref points at a JSON import-map file, located by URL or path. The file is
// fetched through the same loader used for modules.
type Ref struct {
	Location locate.Location
}

func (Inline) isSource() {}
func (Ref) isSource()    {}

// Serialized is the single form the compiler engine accepts. BaseURL always
// ends with a slash so the engine treats it as a directory root, never a
// file.
type Serialized struct {
	BaseURL    string `json:"baseUrl"`
	JSONString string `json:"jsonString"`
}

// payload is the import-map document shape, {imports?, scopes?}
type payload struct {
	Imports map[string]string            `json:"imports,omitempty"`
	Scopes  map[string]map[string]string `json:"scopes,omitempty"`
}

// Resolve builds the serialized import map for one invocation. A nil source
// resolves to nil. File-backed sources issue exactly one load through l with
// the dynamic flag off; the response must be of kind module and parse as
// {imports?, scopes?} JSON, and the map's own directory becomes the base
// URL. Every failure on that path is an import-map error, distinct from
// module load failures.
func Resolve(ctx context.Context, src Source, l loader.Loader, cache loader.CacheSetting) (*Serialized, error) {
	switch s := src.(type) {
	case nil:
		return nil, nil
	case Inline:
		return resolveInline(s)
	case Ref:
		return resolveRef(ctx, s, l, cache)
	default:
		return nil, errors.ImportMap("unknown import map source", nil)
	}
}

func resolveInline(s Inline) (*Serialized, error) {
	var base *url.URL
	var err error
	if s.BaseURL != "" {
		base, err = locate.Resolve(locate.FromString(s.BaseURL), "")
	} else {
		base, err = locate.WorkingDir()
	}
	if err != nil {
		return nil, errors.ImportMap("resolve base URL", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	body, err := json.Marshal(payload{Imports: s.Imports, Scopes: s.Scopes})
	if err != nil {
		return nil, errors.ImportMap("serialize import map", err)
	}

	return &Serialized{BaseURL: base.String(), JSONString: string(body)}, nil
}

func resolveRef(ctx context.Context, s Ref, l loader.Loader, cache loader.CacheSetting) (*Serialized, error) {
	u, err := locate.Resolve(s.Location, "")
	if err != nil {
		return nil, errors.ImportMap("resolve import map location", err)
	}
	specifier := u.String()

	resp, err := l.Load(ctx, specifier, false, cache)
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindImportMap).
			Specifier(specifier).
			Detail("load import map").
			Cause(err).
			Build()
	}
	if resp == nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindImportMap).
			Specifier(specifier).
			Detail("import map not found").
			Build()
	}
	if resp.Kind != loader.KindModule {
		return nil, errors.New(errors.PhaseResolve, errors.KindImportMap).
			Specifier(specifier).
			Detail("import map resolved to a %q response", resp.Kind).
			Build()
	}

	content := resp.Content
	if content == nil {
		content = []byte(resp.Text)
	}

	var doc payload
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindImportMap).
			Specifier(specifier).
			Detail("body is not import-map JSON").
			Cause(err).
			Build()
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.ImportMap("serialize import map", err)
	}

	// Relative targets resolve against the map file's own directory, not
	// the caller's working directory.
	base := *u
	if idx := strings.LastIndexByte(base.Path, '/'); idx >= 0 {
		base.Path = base.Path[:idx+1]
	} else {
		base.Path = "/"
	}
	base.RawQuery = ""
	base.Fragment = ""

	return &Serialized{BaseURL: base.String(), JSONString: string(body)}, nil
}
