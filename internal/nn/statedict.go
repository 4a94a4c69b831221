package nn

import (
	"strings"

	"github.com/born-ml/flows/internal/tensor"
)

// MergeStateDict copies src into dst with every key prefixed by
// prefix + ".". It is how composite modules assemble their state.
func MergeStateDict(dst map[string]*tensor.Tensor, prefix string, src map[string]*tensor.Tensor) {
	for name, value := range src {
		dst[prefix+"."+name] = value
	}
}

// SubStateDict extracts the entries of src under prefix + "." with the
// prefix stripped.
func SubStateDict(src map[string]*tensor.Tensor, prefix string) map[string]*tensor.Tensor {
	out := make(map[string]*tensor.Tensor)
	p := prefix + "."
	for name, value := range src {
		if strings.HasPrefix(name, p) {
			out[name[len(p):]] = value
		}
	}
	return out
}
