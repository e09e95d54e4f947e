package filecab

import (
	"path/filepath"
	"strings"
)

// Destination resolves the rule's template against root for the given
// bindings and returns the absolute destination path, extension included.
//
// Components are concatenated in order. A variable reference with no binding
// contributes nothing; path assembly never fails. The extension is a property
// of the file being filed and is supplied by the caller (without a leading
// dot, though one is tolerated). The result is deterministic: identical
// inputs always produce a byte-identical path.
func (r *Rule) Destination(bindings map[string]string, root string, ext string) string {
	var b strings.Builder
	for _, c := range r.Components {
		switch c.Kind {
		case ComponentText:
			b.WriteString(c.Value)
		case ComponentVariable:
			b.WriteString(bindings[c.Value])
		}
	}

	dest := filepath.Join(root, b.String())
	if ext != "" {
		dest += "." + strings.TrimPrefix(ext, ".")
	}
	return dest
}
