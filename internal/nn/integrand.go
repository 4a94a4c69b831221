package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/flows/internal/tensor"
)

// IntegrandNet is the strictly positive scalar network integrated by the
// unconstrained monotonic transforms (Wehenkel & Louppe, 2019).
//
// It maps (t, h) to a positive value, where t is the integration variable
// and h is the conditioning embedding produced by the autoregressive
// conditioner for the current feature. Hidden layers use ELU; the output
// head applies ELU(out) + 1 so the integrand never vanishes, which keeps
// the integral strictly monotone in t.
type IntegrandNet struct {
	condSize int
	layers   []*Linear
}

// NewIntegrandNet creates an integrand network with the given hidden layer
// widths. The input is 1 + condSize wide, the output is a single value.
func NewIntegrandNet(condSize int, hidden []int) (*IntegrandNet, error) {
	if condSize < 1 {
		return nil, fmt.Errorf("nn: integrand conditioning size must be >= 1, got %d", condSize)
	}
	if len(hidden) == 0 {
		return nil, fmt.Errorf("nn: integrand network needs at least one hidden layer")
	}
	widths := append([]int{1 + condSize}, hidden...)
	widths = append(widths, 1)

	n := &IntegrandNet{condSize: condSize}
	for i := 0; i+1 < len(widths); i++ {
		n.layers = append(n.layers, NewLinear(widths[i], widths[i+1]))
	}
	return n, nil
}

// Eval computes the integrand at t under conditioning embedding h.
func (n *IntegrandNet) Eval(t float64, h []float64) float64 {
	if len(h) != n.condSize {
		panic(fmt.Sprintf("nn: integrand embedding size %d, expected %d", len(h), n.condSize))
	}
	in := make([]float64, 1+n.condSize)
	in[0] = t
	copy(in[1:], h)

	cur, err := tensor.New(in, tensor.Shape{1, len(in)})
	if err != nil {
		panic(err)
	}
	last := len(n.layers) - 1
	for i, l := range n.layers {
		cur = l.Forward(cur)
		if i == last {
			break
		}
		data := cur.Data()
		for j, v := range data {
			data[j] = elu(v)
		}
	}
	return elu(cur.Data()[0]) + 1
}

// Parameters returns all layer parameters.
func (n *IntegrandNet) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range n.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// StateDict returns the network state keyed by layer index.
func (n *IntegrandNet) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	for i, l := range n.layers {
		MergeStateDict(sd, strconv.Itoa(i), l.StateDict())
	}
	return sd
}

// LoadStateDict restores the network state.
func (n *IntegrandNet) LoadStateDict(sd map[string]*tensor.Tensor) error {
	for i, l := range n.layers {
		if err := l.LoadStateDict(SubStateDict(sd, strconv.Itoa(i))); err != nil {
			return fmt.Errorf("nn: integrand layer %d: %w", i, err)
		}
	}
	return nil
}
