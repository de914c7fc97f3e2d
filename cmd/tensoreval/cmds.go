package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tensoreval/internal/config"
	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/parallel"
	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/serialization"
	"github.com/born-ml/tensoreval/internal/tensor"
)

const binaryExt = ".tev"

func fatal(cmd *cobra.Command, err error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
}

// Action is the state used when processing a command.
type Action struct {
	cmd    *cobra.Command
	cfg    config.Config
	logger log.Logger
}

func newAction(cmd *cobra.Command) (*Action, error) {
	cfg := config.Default()
	if path := getString(cmd, "config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if s := getString(cmd, "backend"); s != "" {
		cfg.Backend = s
	}
	if s := getString(cmd, "log-level"); s != "" {
		cfg.LogLevel = s
	}
	if cmd.Flags().Changed("optimize") {
		cfg.Optimize, _ = cmd.Flags().GetBool("optimize")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(cmd.ErrOrStderr()))
	logger = log.With(cfg.Logger(logger), "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return &Action{cmd: cmd, cfg: cfg, logger: logger}, nil
}

func getString(cmd *cobra.Command, name string) string {
	result, _ := cmd.Flags().GetString(name)
	return result
}

func getBool(cmd *cobra.Command, name string) bool {
	result, _ := cmd.Flags().GetBool(name)
	return result
}

// show writes v to the command output as YAML.
func (a *Action) show(v interface{}) error {
	enc := yaml.NewEncoder(a.cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "write output")
	}
	return enc.Close()
}

// loadValue reads a value from a .tev file or a YAML tensor spec.
func (a *Action) loadValue(path string) (tensor.Value, error) {
	if filepath.Ext(path) == binaryExt {
		v, err := serialization.LoadValue(path, a.cfg.Factory())
		return v, errors.Wrap(err, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	spec, err := tensor.ParseSpecYAML(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return tensor.ValueFromSpec(spec, a.cfg.Factory())
}

type typeInfo struct {
	Type              string `yaml:"type"`
	CellType          string `yaml:"cell_type"`
	MappedDimensions  int    `yaml:"mapped_dimensions"`
	IndexedDimensions int    `yaml:"indexed_dimensions"`
	DenseSubspaceSize int    `yaml:"dense_subspace_size"`
}

func showTypes(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	infos := make([]typeInfo, 0, len(args))
	for _, arg := range args {
		t, err := tensor.ParseValueType(arg)
		if err != nil {
			return err
		}
		info := typeInfo{Type: t.String()}
		if !t.IsError() {
			info.CellType = t.CellType().String()
			info.MappedDimensions = t.CountMappedDimensions()
			info.IndexedDimensions = t.CountIndexedDimensions()
			info.DenseSubspaceSize = t.DenseSubspaceSize()
		}
		infos = append(infos, info)
	}
	return a.show(infos)
}

type planInfo struct {
	Result string `yaml:"result"`
	Dense  struct {
		LhsSize   int   `yaml:"lhs_size"`
		RhsSize   int   `yaml:"rhs_size"`
		OutSize   int   `yaml:"out_size"`
		LoopCnt   []int `yaml:"loop_cnt,flow"`
		LhsStride []int `yaml:"lhs_stride,flow"`
		RhsStride []int `yaml:"rhs_stride,flow"`
	} `yaml:"dense"`
	Sparse struct {
		Sources    []string `yaml:"sources,flow"`
		LhsOverlap []int    `yaml:"lhs_overlap,flow"`
		RhsOverlap []int    `yaml:"rhs_overlap,flow"`
	} `yaml:"sparse"`
}

func showPlan(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	var types [2]tensor.ValueType
	for i, arg := range args {
		if types[i], err = tensor.ParseValueType(arg); err != nil {
			return err
		}
	}
	plans, err := plan.NewJoinPlans(types[0], types[1])
	if err != nil {
		return err
	}
	var info planInfo
	info.Result = plans.OutType.String()
	info.Dense.LhsSize = plans.Dense.LhsSize
	info.Dense.RhsSize = plans.Dense.RhsSize
	info.Dense.OutSize = plans.Dense.OutSize
	info.Dense.LoopCnt = plans.Dense.LoopCnt
	info.Dense.LhsStride = plans.Dense.LhsStride
	info.Dense.RhsStride = plans.Dense.RhsStride
	for _, s := range plans.Sparse.Sources {
		info.Sparse.Sources = append(info.Sparse.Sources, s.String())
	}
	info.Sparse.LhsOverlap = plans.Sparse.LhsOverlap
	info.Sparse.RhsOverlap = plans.Sparse.RhsOverlap
	return a.show(&info)
}

func joinFiles(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	op, ok := ops.Op2ByName(args[0])
	if !ok {
		return errors.Errorf("unknown binary function %q", args[0])
	}
	lhs, err := a.loadValue(args[1])
	if err != nil {
		return err
	}
	rhs, err := a.loadValue(args[2])
	if err != nil {
		return err
	}
	result, err := ops.Join(lhs, rhs, op, a.cfg.Factory())
	if err != nil {
		return err
	}
	return a.show(tensor.SpecFromValue(result))
}

func reduceFile(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	aggr, ok := ops.ParseAggr(args[0])
	if !ok {
		return errors.Errorf("unknown aggregator %q", args[0])
	}
	v, err := a.loadValue(args[1])
	if err != nil {
		return err
	}
	result, err := ops.Reduce(v, aggr, args[2:], a.cfg.Factory())
	if err != nil {
		return err
	}
	return a.show(tensor.SpecFromValue(result))
}

type evalReport struct {
	File    string             `yaml:"file,omitempty"`
	Result  *tensor.TensorSpec `yaml:"result"`
	Kernels []string           `yaml:"kernels,flow"`
}

// evalFiles evaluates every expression file, several at once when configured. The files share
// one plan cache and one optimizer.
func evalFiles(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	cache, err := a.cfg.PlanCache()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	opt := a.cfg.Optimizer(optimize.WithLogger(a.logger), optimize.WithRegisterer(reg))

	reports, err := parallel.Map(len(args), func(i int) (*evalReport, error) {
		report, err := a.evalFile(args[i], cache, opt)
		if err != nil {
			return nil, errors.Wrap(err, args[i])
		}
		if len(args) > 1 {
			report.File = args[i]
		}
		return report, nil
	}, a.cfg.Parallel())
	if err != nil {
		return err
	}
	if len(reports) == 1 {
		err = a.show(reports[0])
	} else {
		err = a.show(reports)
	}
	if err != nil {
		return err
	}
	if getBool(cmd, "metrics") {
		return writeMetrics(a.cmd, reg)
	}
	return nil
}

// evalFile runs the generic program, then the optimized one when opt is set, and reports the
// optimized result.
func (a *Action) evalFile(path string, cache *plan.Cache, opt *optimize.Optimizer) (*evalReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	expr, err := parseExpression(data)
	if err != nil {
		return nil, err
	}
	params := make([]tensor.Value, len(expr.Params))
	for i, spec := range expr.Params {
		if params[i], err = tensor.ValueFromSpec(spec, a.cfg.Factory()); err != nil {
			return nil, errors.Wrapf(err, "param %d", i)
		}
	}
	opts := []eval.Option{
		eval.WithFactory(a.cfg.Factory()),
		eval.WithPlanCache(cache),
		eval.WithLogger(log.With(a.logger, "file", path)),
	}

	generic, err := eval.Compile(expr.Root, opts...)
	if err != nil {
		return nil, err
	}
	want, err := generic.Eval(params...)
	if err != nil {
		return nil, err
	}
	report := &evalReport{Result: tensor.SpecFromValue(want), Kernels: instructionNames(generic)}
	if opt == nil {
		return report, nil
	}

	// The generic run is done, so the optimized one may overwrite the declared params.
	opts = append(opts, eval.WithOptimizer(opt), eval.WithMutableParams(expr.Mutable...))
	optimized, err := eval.Compile(expr.Root, opts...)
	if err != nil {
		return nil, err
	}
	got, err := optimized.Eval(params...)
	if err != nil {
		return nil, err
	}
	gotSpec := tensor.SpecFromValue(got)
	if !report.Result.Equal(gotSpec) {
		level.Warn(a.logger).Log("msg", "optimized result differs", "file", path, "diff", report.Result.Diff(gotSpec))
	}
	report.Result = gotSpec
	report.Kernels = instructionNames(optimized)
	return report, nil
}

func instructionNames(p *eval.Program) []string {
	names := make([]string, 0, len(p.Instructions()))
	for _, inst := range p.Instructions() {
		names = append(names, inst.Name())
	}
	return names
}

func writeMetrics(cmd *cobra.Command, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(cmd.OutOrStdout(), mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}

// convertFile rewrites a value between the YAML spec and .tev formats, picking each format by
// file extension.
func convertFile(cmd *cobra.Command, args []string) error {
	a, err := newAction(cmd)
	if err != nil {
		return err
	}
	v, err := a.loadValue(args[0])
	if err != nil {
		return err
	}
	out := args[1]
	if filepath.Ext(out) == binaryExt {
		err = serialization.SaveValue(out, v)
	} else {
		err = writeSpec(out, tensor.SpecFromValue(v))
	}
	if err != nil {
		return errors.Wrap(err, out)
	}
	level.Debug(a.logger).Log("msg", "converted value", "in", args[0], "out", out, "type", v.Type())
	return nil
}

func writeSpec(path string, spec *tensor.TensorSpec) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func showVersion(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "tensoreval %s\n", version)
	return err
}
