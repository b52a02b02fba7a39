package emit

import (
	"encoding/json"

	"github.com/wippyai/emit/errors"
)

// CompilerOptions is the tsconfig-shaped option set a compile accepts. The
// engine interprets the values; this layer only checks the cross-field
// invariants and serializes the rest untouched, so engine-specific values
// pass through without translation.
type CompilerOptions struct {
	// CheckJs includes .js files in type-directed transforms.
	CheckJS bool `json:"checkJs,omitempty"`
	// EmitDecoratorMetadata emits decorator design-time type metadata.
	EmitDecoratorMetadata bool `json:"emitDecoratorMetadata,omitempty"`
	// ImportsNotUsedAsValues controls elision of type-only imports.
	ImportsNotUsedAsValues string `json:"importsNotUsedAsValues,omitempty"`
	// JSX selects the JSX transform ("react", "react-jsx", "react-jsxdev", "preserve").
	JSX string `json:"jsx,omitempty"`
	// JSXFactory names the call for JSX elements under the classic transform.
	JSXFactory string `json:"jsxFactory,omitempty"`
	// JSXFragmentFactory names the call for JSX fragments under the classic transform.
	JSXFragmentFactory string `json:"jsxFragmentFactory,omitempty"`
	// JSXImportSource sets the module the automatic transform imports from.
	JSXImportSource string `json:"jsxImportSource,omitempty"`
	// SourceMap emits an external source map.
	SourceMap bool `json:"sourceMap,omitempty"`
	// InlineSourceMap embeds the source map in the emitted code.
	InlineSourceMap bool `json:"inlineSourceMap,omitempty"`
	// InlineSources embeds original source text in the source map. Requires
	// one of SourceMap or InlineSourceMap.
	InlineSources bool `json:"inlineSources,omitempty"`
}

// Validate checks the cross-field option invariants. It runs before any
// resolution or loading, so an invalid combination fails without I/O. A nil
// receiver is valid and means engine defaults.
func (o *CompilerOptions) Validate() error {
	if o == nil {
		return nil
	}
	if o.SourceMap && o.InlineSourceMap {
		return errors.Config("sourceMap and inlineSourceMap are mutually exclusive")
	}
	if o.InlineSources && !o.SourceMap && !o.InlineSourceMap {
		return errors.Config("inlineSources requires sourceMap or inlineSourceMap")
	}
	return nil
}

func (o *CompilerOptions) marshal() ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}
