package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/flows/internal/tensor"
)

// MADEConfig configures a masked autoregressive conditioner.
//
// Zero values select the library defaults: 64 hidden features, 2 hidden
// blocks, ReLU activation, no residual connections.
type MADEConfig struct {
	Features         int
	Context          int // context vector size; 0 disables conditioning
	HiddenFeatures   int
	NumBlocks        int
	OutputMultiplier int // outputs per feature
	Activation       Activation
	Residual         bool
}

func (c *MADEConfig) fillDefaults() {
	if c.HiddenFeatures == 0 {
		c.HiddenFeatures = 64
	}
	if c.NumBlocks == 0 {
		c.NumBlocks = 2
	}
	if c.OutputMultiplier == 0 {
		c.OutputMultiplier = 1
	}
	if c.Activation == "" {
		c.Activation = ReLU
	}
}

// MADE is a masked autoregressive conditioner network (Germain et al.,
// 2015). For a [batch, features] input it produces
// [batch, features*OutputMultiplier] outputs where the outputs of feature i
// depend only on inputs with a lower autoregressive degree, never on input i
// itself. Context enters through an unmasked linear layer added to the first
// hidden pre-activation.
//
// The output columns are grouped by feature: columns
// [i*OutputMultiplier, (i+1)*OutputMultiplier) parameterize feature i.
type MADE struct {
	cfg     MADEConfig
	initial *MaskedLinear
	context *Linear // nil without context
	blocks  []hiddenBlock
	final   *MaskedLinear
}

// NewMADE creates a MADE conditioner.
func NewMADE(cfg MADEConfig) (*MADE, error) {
	if err := validateDegrees(cfg.Features); err != nil {
		return nil, err
	}
	if cfg.Context < 0 {
		return nil, fmt.Errorf("nn: context size must be >= 0, got %d", cfg.Context)
	}
	cfg.fillDefaults()
	act, err := cfg.Activation.Func()
	if err != nil {
		return nil, err
	}

	inDeg := inputDegrees(cfg.Features)
	hidDeg := hiddenDegrees(cfg.HiddenFeatures, cfg.Features)

	outDeg := make([]int, 0, cfg.Features*cfg.OutputMultiplier)
	for _, d := range inDeg {
		for k := 0; k < cfg.OutputMultiplier; k++ {
			outDeg = append(outDeg, d)
		}
	}

	m := &MADE{
		cfg:     cfg,
		initial: NewMaskedLinear(inDeg, hidDeg, false),
		final:   NewMaskedLinear(hidDeg, outDeg, true),
	}
	if cfg.Context > 0 {
		m.context = NewLinear(cfg.Context, cfg.HiddenFeatures)
	}
	for i := 0; i < cfg.NumBlocks; i++ {
		if cfg.Residual {
			m.blocks = append(m.blocks, newResidualBlock(hidDeg, act))
		} else {
			m.blocks = append(m.blocks, newFeedforwardBlock(hidDeg, act))
		}
	}
	return m, nil
}

// Features returns the number of autoregressive features.
func (m *MADE) Features() int { return m.cfg.Features }

// OutputMultiplier returns the number of outputs per feature.
func (m *MADE) OutputMultiplier() int { return m.cfg.OutputMultiplier }

// Forward evaluates the conditioner on a [batch, features] input and an
// optional [batch, context] context tensor.
func (m *MADE) Forward(x, ctx *tensor.Tensor) *tensor.Tensor {
	h := m.initial.Forward(x)
	if m.context != nil {
		if ctx == nil {
			panic("nn: MADE built with context but Forward called without one")
		}
		c := m.context.Forward(ctx)
		hd, cd := h.Data(), c.Data()
		if len(hd) != len(cd) {
			panic(fmt.Sprintf("nn: MADE context batch %v does not match input batch %v", ctx.Shape(), x.Shape()))
		}
		for i := range hd {
			hd[i] += cd[i]
		}
	}
	for _, b := range m.blocks {
		h = b.forward(h)
	}
	return m.final.Forward(h)
}

// Parameters returns all parameters of the conditioner.
func (m *MADE) Parameters() []*Parameter {
	params := m.initial.Parameters()
	if m.context != nil {
		params = append(params, m.context.Parameters()...)
	}
	for _, b := range m.blocks {
		params = append(params, b.parameters()...)
	}
	return append(params, m.final.Parameters()...)
}

// StateDict returns the conditioner state keyed by layer path.
func (m *MADE) StateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	MergeStateDict(sd, "initial", m.initial.StateDict())
	if m.context != nil {
		MergeStateDict(sd, "context", m.context.StateDict())
	}
	for i, b := range m.blocks {
		MergeStateDict(sd, "blocks."+strconv.Itoa(i), b.stateDict())
	}
	MergeStateDict(sd, "final", m.final.StateDict())
	return sd
}

// LoadStateDict restores the conditioner state.
func (m *MADE) LoadStateDict(sd map[string]*tensor.Tensor) error {
	if err := m.initial.LoadStateDict(SubStateDict(sd, "initial")); err != nil {
		return fmt.Errorf("nn: MADE initial layer: %w", err)
	}
	if m.context != nil {
		if err := m.context.LoadStateDict(SubStateDict(sd, "context")); err != nil {
			return fmt.Errorf("nn: MADE context layer: %w", err)
		}
	}
	for i, b := range m.blocks {
		if err := b.loadStateDict(SubStateDict(sd, "blocks."+strconv.Itoa(i))); err != nil {
			return fmt.Errorf("nn: MADE block %d: %w", i, err)
		}
	}
	if err := m.final.LoadStateDict(SubStateDict(sd, "final")); err != nil {
		return fmt.Errorf("nn: MADE final layer: %w", err)
	}
	return nil
}

// hiddenBlock is one hidden stage of a MADE.
type hiddenBlock interface {
	forward(h *tensor.Tensor) *tensor.Tensor
	parameters() []*Parameter
	stateDict() map[string]*tensor.Tensor
	loadStateDict(sd map[string]*tensor.Tensor) error
}

// feedforwardBlock is activation(maskedLinear(h)).
type feedforwardBlock struct {
	linear *MaskedLinear
	act    func(float64) float64
}

func newFeedforwardBlock(degrees []int, act func(float64) float64) *feedforwardBlock {
	return &feedforwardBlock{linear: NewMaskedLinear(degrees, degrees, false), act: act}
}

func (b *feedforwardBlock) forward(h *tensor.Tensor) *tensor.Tensor {
	out := b.linear.Forward(h)
	data := out.Data()
	for i, v := range data {
		data[i] = b.act(v)
	}
	return out
}

func (b *feedforwardBlock) parameters() []*Parameter { return b.linear.Parameters() }

func (b *feedforwardBlock) stateDict() map[string]*tensor.Tensor { return b.linear.StateDict() }

func (b *feedforwardBlock) loadStateDict(sd map[string]*tensor.Tensor) error {
	return b.linear.LoadStateDict(sd)
}

// residualBlock is a pre-activation residual pair of masked linears with
// degree-preserving masks: h + l2(act(l1(act(h)))).
type residualBlock struct {
	first  *MaskedLinear
	second *MaskedLinear
	act    func(float64) float64
}

func newResidualBlock(degrees []int, act func(float64) float64) *residualBlock {
	return &residualBlock{
		first:  NewMaskedLinear(degrees, degrees, false),
		second: NewMaskedLinear(degrees, degrees, false),
		act:    act,
	}
}

func (b *residualBlock) forward(h *tensor.Tensor) *tensor.Tensor {
	t := h.Clone()
	data := t.Data()
	for i, v := range data {
		data[i] = b.act(v)
	}
	t = b.first.Forward(t)
	data = t.Data()
	for i, v := range data {
		data[i] = b.act(v)
	}
	t = b.second.Forward(t)
	out := h.Clone()
	od, td := out.Data(), t.Data()
	for i := range od {
		od[i] += td[i]
	}
	return out
}

func (b *residualBlock) parameters() []*Parameter {
	return append(b.first.Parameters(), b.second.Parameters()...)
}

func (b *residualBlock) stateDict() map[string]*tensor.Tensor {
	sd := make(map[string]*tensor.Tensor)
	MergeStateDict(sd, "0", b.first.StateDict())
	MergeStateDict(sd, "1", b.second.StateDict())
	return sd
}

func (b *residualBlock) loadStateDict(sd map[string]*tensor.Tensor) error {
	if err := b.first.LoadStateDict(SubStateDict(sd, "0")); err != nil {
		return err
	}
	return b.second.LoadStateDict(SubStateDict(sd, "1"))
}
