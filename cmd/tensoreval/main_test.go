package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tensoreval/internal/tensor"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tensoreval "+version+"\n", out)
}

func TestTypeCommand(t *testing.T) {
	out, _, err := run(t, "type", "tensor<float>(y[3],x{})", "double")
	require.NoError(t, err)
	var infos []typeInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, typeInfo{Type: "tensor<float>(x{},y[3])", CellType: "float", MappedDimensions: 1, IndexedDimensions: 1, DenseSubspaceSize: 3}, infos[0])
	assert.Equal(t, "double", infos[1].Type)

	_, _, err = run(t, "type", "tensor(x[0])")
	assert.ErrorIs(t, err, tensor.ErrMalformedTypeSpec)
}

func TestPlanCommand(t *testing.T) {
	out, _, err := run(t, "plan", "tensor(a[2],b[3],c[5],x{})", "tensor(b[3],c[5],d[4],x{},y{})")
	require.NoError(t, err)
	var info planInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, "tensor(a[2],b[3],c[5],d[4],x{},y{})", info.Result)
	assert.Equal(t, []int{2, 15, 4}, info.Dense.LoopCnt)
	assert.Equal(t, []int{15, 1, 0}, info.Dense.LhsStride)
	assert.Equal(t, []int{0, 4, 1}, info.Dense.RhsStride)
	assert.Equal(t, []string{"BOTH", "RHS"}, info.Sparse.Sources)

	_, _, err = run(t, "plan", "tensor(x[2])", "tensor(x[3])")
	assert.ErrorIs(t, err, tensor.ErrInvalidType)
}

func TestJoinAndReduceCommands(t *testing.T) {
	lhs := writeFile(t, "lhs.yaml", `
type: tensor(x[2])
cells:
  - {address: {x: 0}, value: 1}
  - {address: {x: 1}, value: 2}
`)
	rhs := writeFile(t, "rhs.yaml", `
type: tensor(y{})
cells:
  - {address: {y: a}, value: 10}
`)
	out, _, err := run(t, "join", "mul", lhs, rhs)
	require.NoError(t, err)
	spec, err := tensor.ParseSpecYAML([]byte(out))
	require.NoError(t, err)
	want := tensor.NewTensorSpec("tensor(x[2],y{})").
		Add(tensor.Address{"x": tensor.IndexedLabel(0), "y": tensor.MappedLabel("a")}, 10).
		Add(tensor.Address{"x": tensor.IndexedLabel(1), "y": tensor.MappedLabel("a")}, 20)
	assert.True(t, want.Equal(spec), want.Diff(spec))

	out, _, err = run(t, "--backend", "simple", "reduce", "sum", lhs)
	require.NoError(t, err)
	spec, err = tensor.ParseSpecYAML([]byte(out))
	require.NoError(t, err)
	assert.True(t, tensor.NewTensorSpec("double").Add(tensor.Address{}, 3).Equal(spec))

	_, _, err = run(t, "join", "bogus", lhs, rhs)
	assert.Error(t, err)
	_, _, err = run(t, "reduce", "sum", lhs, "z")
	assert.ErrorIs(t, err, tensor.ErrInvalidType)
}

const matMulExpr = `
params:
  - type: tensor(a[2],d[3])
    cells:
      - {address: {a: 0, d: 0}, value: 1}
      - {address: {a: 0, d: 1}, value: 2}
      - {address: {a: 0, d: 2}, value: 3}
      - {address: {a: 1, d: 0}, value: 4}
      - {address: {a: 1, d: 1}, value: 5}
      - {address: {a: 1, d: 2}, value: 6}
  - type: tensor(b[2],d[3])
    cells:
      - {address: {b: 0, d: 0}, value: 1}
      - {address: {b: 1, d: 1}, value: 1}
      - {address: {b: 1, d: 2}, value: 1}
expr:
  reduce:
    aggr: sum
    dims: [d]
    arg:
      join: {op: mul, lhs: {param: 0}, rhs: {param: 1}}
`

func TestEvalCommand(t *testing.T) {
	path := writeFile(t, "expr.yaml", matMulExpr)
	want := tensor.NewTensorSpec("tensor(a[2],b[2])").
		Add(tensor.Address{"a": tensor.IndexedLabel(0), "b": tensor.IndexedLabel(0)}, 1).
		Add(tensor.Address{"a": tensor.IndexedLabel(0), "b": tensor.IndexedLabel(1)}, 5).
		Add(tensor.Address{"a": tensor.IndexedLabel(1), "b": tensor.IndexedLabel(0)}, 4).
		Add(tensor.Address{"a": tensor.IndexedLabel(1), "b": tensor.IndexedLabel(1)}, 11)

	decode := func(out string) ([]string, *tensor.TensorSpec) {
		var report struct {
			Result  yaml.Node `yaml:"result"`
			Kernels []string  `yaml:"kernels"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(out), &report))
		spec := tensor.NewTensorSpec("double")
		require.NoError(t, report.Result.Decode(spec))
		return report.Kernels, spec
	}

	out, stderr, err := run(t, "--log-level", "debug", "eval", "--metrics", path)
	require.NoError(t, err)
	report, metrics, found := cutMetrics(out)
	require.True(t, found)
	kernels, spec := decode(report)
	assert.Equal(t, []string{"param", "param", "dense_matmul"}, kernels)
	assert.True(t, want.Equal(spec), want.Diff(spec))
	assert.Contains(t, stderr, "rewrote node")
	assert.Contains(t, metrics, `tensoreval_optimizer_rewrites_total{kernel="dense_matmul"} 1`)

	out, _, err = run(t, "--optimize=false", "eval", path)
	require.NoError(t, err)
	kernels, spec = decode(out)
	assert.Equal(t, []string{"param", "param", "join", "reduce"}, kernels)
	assert.True(t, want.Equal(spec), want.Diff(spec))
}

func cutMetrics(out string) (report, metrics string, found bool) {
	idx := bytes.Index([]byte(out), []byte("# HELP"))
	if idx < 0 {
		return out, "", false
	}
	return out[:idx], out[idx:], true
}

func TestEvalCommand_Config(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "disabled_kernels: [dense_matmul]\nplan_cache_size: 0\n")
	path := writeFile(t, "expr.yaml", matMulExpr)
	out, _, err := run(t, "--config", cfg, "eval", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dense_single_reduce")
	assert.NotContains(t, out, "dense_matmul")

	bad := writeFile(t, "bad.yaml", "backend: gpu\n")
	_, _, err = run(t, "--config", bad, "eval", path)
	assert.Error(t, err)
}

func TestConvertCommand(t *testing.T) {
	src := writeFile(t, "v.yaml", `
type: tensor<float>(x{},y[2])
cells:
  - {address: {x: a, y: 0}, value: 1}
  - {address: {x: a, y: 1}, value: 2}
  - {address: {x: b, y: 0}, value: 0}
  - {address: {x: b, y: 1}, value: 4}
`)
	dir := t.TempDir()
	bin := filepath.Join(dir, "v.tev")
	_, _, err := run(t, "convert", src, bin)
	require.NoError(t, err)

	out, _, err := run(t, "reduce", "sum", bin, "y")
	require.NoError(t, err)
	spec, err := tensor.ParseSpecYAML([]byte(out))
	require.NoError(t, err)
	want := tensor.NewTensorSpec("tensor<float>(x{})").
		Add(tensor.Address{"x": tensor.MappedLabel("a")}, 3).
		Add(tensor.Address{"x": tensor.MappedLabel("b")}, 4)
	assert.True(t, want.Equal(spec), want.Diff(spec))

	back := filepath.Join(dir, "back.yaml")
	_, _, err = run(t, "--backend", "simple", "convert", bin, back)
	require.NoError(t, err)
	data, err := os.ReadFile(back)
	require.NoError(t, err)
	spec, err = tensor.ParseSpecYAML(data)
	require.NoError(t, err)
	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	origSpec, err := tensor.ParseSpecYAML(orig)
	require.NoError(t, err)
	assert.True(t, origSpec.Equal(spec), origSpec.Diff(spec))

	_, _, err = run(t, "convert", filepath.Join(dir, "missing.tev"), back)
	assert.Error(t, err)
}

func TestEvalCommand_MultipleFiles(t *testing.T) {
	matmul := writeFile(t, "matmul.yaml", matMulExpr)
	sum := writeFile(t, "sum.yaml", `
params:
  - type: tensor(x[3])
    cells:
      - {address: {x: 0}, value: 1}
      - {address: {x: 1}, value: 2}
      - {address: {x: 2}, value: 3}
expr:
  reduce: {aggr: sum, arg: {param: 0}}
`)
	cfg := writeFile(t, "config.yaml", "jobs: 2\n")
	out, _, err := run(t, "--config", cfg, "eval", matmul, sum)
	require.NoError(t, err)

	var reports []struct {
		File    string   `yaml:"file"`
		Kernels []string `yaml:"kernels"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, matmul, reports[0].File)
	assert.Equal(t, []string{"param", "param", "dense_matmul"}, reports[0].Kernels)
	assert.Equal(t, sum, reports[1].File)
	assert.Equal(t, []string{"param", "reduce"}, reports[1].Kernels)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err = run(t, "eval", matmul, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
}
