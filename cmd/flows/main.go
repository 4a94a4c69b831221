// Package main provides the flows command-line tool: build a masked
// autoregressive flow, optionally load a checkpoint, then sample from it
// or evaluate log-densities.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	xrand "golang.org/x/exp/rand"

	"github.com/born-ml/flows/checkpoint"
	"github.com/born-ml/flows/distribution"
	"github.com/born-ml/flows/flow"
	"github.com/born-ml/flows/tensor"
)

const version = "v0.1.0-dev"

type modelFlags struct {
	xSize         int
	ySize         int
	architecture  string
	numTransforms int
	checkpointIn  string
	seed          uint64
}

func (m *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&m.xSize, "x-size", 2, "dimensionality of x")
	cmd.Flags().IntVar(&m.ySize, "y-size", 0, "dimensionality of the context y (0 for unconditional)")
	cmd.Flags().StringVar(&m.architecture, "architecture", "affine", "transform family: affine, PRQ or UMNN")
	cmd.Flags().IntVar(&m.numTransforms, "num-transforms", 5, "number of transform blocks")
	cmd.Flags().StringVar(&m.checkpointIn, "checkpoint", "", "checkpoint file with trained parameters")
	cmd.Flags().Uint64Var(&m.seed, "seed", 0, "seed for base-distribution sampling (0 uses the global source)")
}

// build constructs the flow described by the flags and loads the
// checkpoint when one is given.
func (m *modelFlags) build(logger *slog.Logger) (*flow.NormalizingFlow, error) {
	arch, err := flow.ParseArchitecture(m.architecture)
	if err != nil {
		return nil, err
	}
	f, err := flow.NewMAF(flow.MAFConfig{
		XSize:         m.xSize,
		YSize:         m.ySize,
		Architecture:  arch,
		NumTransforms: m.numTransforms,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("constructed flow",
		"architecture", string(arch),
		"x_size", m.xSize,
		"y_size", m.ySize,
		"transforms", f.Transform().Len(),
		"parameters", len(f.Parameters()))

	if m.checkpointIn != "" {
		hdr, sd, err := checkpoint.Load(m.checkpointIn)
		if err != nil {
			return nil, err
		}
		if err := f.LoadStateDict(sd); err != nil {
			return nil, fmt.Errorf("load %s: %w", m.checkpointIn, err)
		}
		logger.Info("loaded checkpoint", "path", m.checkpointIn, "created_at", hdr.CreatedAt)
	}
	if m.seed != 0 {
		f.Base().(*distribution.StandardNormal).SetSource(xrand.NewSource(m.seed))
	}
	return f, nil
}

// parseContext parses a comma-separated context vector matching ySize.
// An empty spec is valid only for unconditional flows.
func parseContext(spec string, ySize int) (*tensor.Tensor, error) {
	if ySize == 0 {
		if spec != "" {
			return nil, fmt.Errorf("--context given but --y-size is 0")
		}
		return nil, nil
	}
	if spec == "" {
		return tensor.Zeros(tensor.Shape{ySize}), nil
	}
	vals, err := parseFloats(spec, ",")
	if err != nil {
		return nil, fmt.Errorf("invalid --context: %w", err)
	}
	if len(vals) != ySize {
		return nil, fmt.Errorf("--context has %d values, want %d", len(vals), ySize)
	}
	return tensor.New(vals, tensor.Shape{ySize})
}

func parseFloats(s, sep string) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), sep)
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func newSampleCmd(logger *slog.Logger) *cobra.Command {
	var (
		model   modelFlags
		num     int
		context string
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw samples from a flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.build(logger)
			if err != nil {
				return err
			}
			y, err := parseContext(context, model.ySize)
			if err != nil {
				return err
			}
			x, err := f.Sample(y, num)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			flat, err := x.Reshape(tensor.Shape{num, model.xSize})
			if err != nil {
				return err
			}
			for i := 0; i < num; i++ {
				writeRow(w, flat.Row(i))
			}
			return nil
		},
	}
	model.register(cmd)
	cmd.Flags().IntVar(&num, "num", 10, "number of samples to draw")
	cmd.Flags().StringVar(&context, "context", "", "comma-separated context vector (defaults to zeros)")
	return cmd
}

func newLogProbCmd(logger *slog.Logger) *cobra.Command {
	var (
		model   modelFlags
		input   string
		context string
	)
	cmd := &cobra.Command{
		Use:   "logprob",
		Short: "Evaluate log-densities of points read from a file or stdin",
		Long: "Evaluate log p(x|y) for points given one per line as comma-separated values.\n" +
			"Every point shares the context passed via --context.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.build(logger)
			if err != nil {
				return err
			}
			y, err := parseContext(context, model.ySize)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if input != "" {
				file, err := os.Open(input)
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			points, err := readPoints(r, model.xSize)
			if err != nil {
				return err
			}

			var ctx *tensor.Tensor
			if y != nil {
				ctx = tensor.Zeros(tensor.Shape{points.Rows(), model.ySize})
				for i := 0; i < points.Rows(); i++ {
					copy(ctx.Row(i), y.Data())
				}
			}
			logProb, err := f.LogProb(points, ctx)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			defer w.Flush()
			for _, lp := range logProb {
				fmt.Fprintf(w, "%g\n", lp)
			}
			return nil
		},
	}
	model.register(cmd)
	cmd.Flags().StringVar(&input, "input", "", "file with one point per line (default stdin)")
	cmd.Flags().StringVar(&context, "context", "", "comma-separated context vector (defaults to zeros)")
	return cmd
}

func readPoints(r io.Reader, xSize int) (*tensor.Tensor, error) {
	var data []float64
	rows := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		vals, err := parseFloats(line, ",")
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rows+1, err)
		}
		if len(vals) != xSize {
			return nil, fmt.Errorf("line %d: has %d values, want %d", rows+1, len(vals), xSize)
		}
		data = append(data, vals...)
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("no points to evaluate")
	}
	return tensor.New(data, tensor.Shape{rows, xSize})
}

func writeRow(w io.Writer, row []float64) {
	for j, v := range row {
		if j > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, "%g", v)
	}
	fmt.Fprintln(w)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := &cobra.Command{
		Use:           "flows",
		Short:         "Conditional normalizing-flow density estimation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flows %s\n", version)
		},
	})
	root.AddCommand(newSampleCmd(logger))
	root.AddCommand(newLogProbCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
