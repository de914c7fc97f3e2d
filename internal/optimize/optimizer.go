package optimize

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/tensoreval/internal/eval"
	"github.com/born-ml/tensoreval/internal/ops"
)

// Detector inspects a node whose children are already optimized and returns a replacement,
// or nil when the node does not match.
type Detector func(n eval.Node, proof *eval.MutabilityProof) eval.Node

// Rule is a named detector. Rules run in passes; within a pass, rules are tried in
// registration order and the first match wins.
type Rule struct {
	Name   string
	Pass   int
	Detect Detector
}

// Kernel names.
const (
	KernelSumMaxInvHamming  = "sum_max_inv_hamming"
	KernelDenseMultiMatMul  = "dense_multi_matmul"
	KernelDenseMatMul       = "dense_matmul"
	KernelDenseXWProduct    = "dense_xw_product"
	KernelDenseSingleReduce = "dense_single_reduce"
	KernelJoinWithNumber    = "join_with_number"
)

// DefaultRules returns every built-in rule. Fused reduce/join patterns run first so that
// their inner reduces are still intact when they are inspected.
func DefaultRules() []Rule {
	return []Rule{
		{Name: KernelSumMaxInvHamming, Pass: 0, Detect: DetectSumMaxInvHamming},
		{Name: KernelDenseMultiMatMul, Pass: 0, Detect: DetectDenseMultiMatMul},
		{Name: KernelDenseMatMul, Pass: 0, Detect: DetectDenseMatMul},
		{Name: KernelDenseXWProduct, Pass: 0, Detect: DetectDenseXWProduct},
		{Name: KernelDenseSingleReduce, Pass: 1, Detect: DetectDenseSingleReduce},
		{Name: KernelJoinWithNumber, Pass: 2, Detect: DetectJoinWithNumber},
	}
}

type metrics struct {
	rewrites *prometheus.CounterVec
	visited  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		rewrites: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tensoreval",
			Subsystem: "optimizer",
			Name:      "rewrites_total",
			Help:      "Number of expression nodes replaced by a specialized kernel.",
		}, []string{"kernel"}),
		visited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "tensoreval",
			Subsystem: "optimizer",
			Name:      "nodes_visited_total",
			Help:      "Number of expression nodes inspected by the optimizer.",
		}),
	}
}

// Optimizer applies rules to expression trees. It implements eval.Optimizer.
type Optimizer struct {
	rules    []Rule
	disabled map[string]bool
	logger   log.Logger
	metrics  *metrics
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger logs every rewrite at debug level.
func WithLogger(l log.Logger) Option {
	return func(o *Optimizer) { o.logger = l }
}

// WithRegisterer registers the optimizer metrics.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Optimizer) { o.metrics = newMetrics(reg) }
}

// WithDisabled turns off the named rules.
func WithDisabled(names ...string) Option {
	return func(o *Optimizer) {
		for _, name := range names {
			o.disabled[name] = true
		}
	}
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(o *Optimizer) { o.rules = rules }
}

// New creates an optimizer with the default rules.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		rules:    DefaultRules(),
		disabled: make(map[string]bool),
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = newMetrics(nil)
	}
	return o
}

// Register appends a rule.
func (o *Optimizer) Register(r Rule) {
	o.rules = append(o.rules, r)
}

// Kernels returns the names of the enabled rules.
func (o *Optimizer) Kernels() []string {
	names := make([]string, 0, len(o.rules))
	for _, r := range o.rules {
		if !o.disabled[r.Name] {
			names = append(names, r.Name)
		}
	}
	return names
}

// Optimize implements eval.Optimizer.
func (o *Optimizer) Optimize(root eval.Node, proof *eval.MutabilityProof) eval.Node {
	maxPass := -1
	for _, r := range o.rules {
		maxPass = max(maxPass, r.Pass)
	}
	for pass := 0; pass <= maxPass; pass++ {
		var rules []Rule
		for _, r := range o.rules {
			if r.Pass == pass && !o.disabled[r.Name] {
				rules = append(rules, r)
			}
		}
		if len(rules) == 0 {
			continue
		}
		root = o.runPass(root, rules, proof, make(map[eval.Node]eval.Node))
	}
	return root
}

func (o *Optimizer) runPass(n eval.Node, rules []Rule, proof *eval.MutabilityProof, done map[eval.Node]eval.Node) eval.Node {
	if r, ok := done[n]; ok {
		return r
	}
	children := n.Children()
	changed := false
	newChildren := make([]eval.Node, len(children))
	for i, child := range children {
		newChildren[i] = o.runPass(child, rules, proof, done)
		changed = changed || newChildren[i] != child
	}
	cur := n
	if changed {
		cur = rebuild(n, newChildren)
		proof.Alias(cur, n)
	}
	o.metrics.visited.Inc()
	for _, r := range rules {
		if replacement := r.Detect(cur, proof); replacement != nil {
			proof.Alias(replacement, cur)
			o.metrics.rewrites.WithLabelValues(r.Name).Inc()
			level.Debug(o.logger).Log("msg", "rewrote node", "kernel", r.Name, "type", cur.ResultType())
			cur = replacement
			break
		}
	}
	done[n] = cur
	return cur
}

// rebuild copies a generic node with new children. Children keep their result types, so
// construction can not fail; nodes of unknown kind are returned unchanged.
func rebuild(n eval.Node, children []eval.Node) eval.Node {
	switch n := n.(type) {
	case *eval.Join:
		if j, err := eval.NewJoin(children[0], children[1], n.Op); err == nil {
			return j
		}
	case *eval.Map:
		return eval.NewMap(children[0], n.Op)
	case *eval.Reduce:
		if r, err := eval.NewReduce(children[0], n.Aggr, n.Dims...); err == nil {
			return r
		}
	case *eval.CellCast:
		return eval.NewCellCast(children[0], n.CellType)
	}
	return n
}

// isMul reports whether op is ordinary multiplication.
func isMul(op *ops.Op2) bool { return op == ops.Mul }
