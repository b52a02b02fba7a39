package loader

import (
	"bytes"
	"context"

	"github.com/wippyai/emit/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Bridge adapts a Loader to the shape the compiler engine invokes. It owns
// content normalization: textual module content becomes UTF-8 bytes and a
// leading byte-order mark is stripped. The response kind always passes
// through unchanged.
//
// Bridge holds no state across calls and is safe for the engine's reentrant
// load pattern.
type Bridge struct {
	inner Loader
}

// NewBridge wraps a loader for use at the engine boundary
func NewBridge(inner Loader) *Bridge {
	return &Bridge{inner: inner}
}

// Load implements Loader
func (b *Bridge) Load(ctx context.Context, specifier string, isDynamic bool, cache CacheSetting) (*Response, error) {
	resp, err := b.inner.Load(ctx, specifier, isDynamic, cache)
	if err != nil || resp == nil {
		return resp, err
	}

	switch resp.Kind {
	case KindModule:
		content := resp.Content
		if content == nil {
			content = []byte(resp.Text)
		}
		content = bytes.TrimPrefix(content, utf8BOM)
		norm := *resp
		norm.Text = ""
		norm.Content = content
		return &norm, nil
	case KindExternal, KindBuiltIn:
		return resp, nil
	default:
		return nil, errors.New(errors.PhaseLoad, errors.KindLoadFailed).
			Specifier(specifier).
			Detail("unknown response kind %q", resp.Kind).
			Build()
	}
}
