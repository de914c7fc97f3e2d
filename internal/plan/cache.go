package plan

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/born-ml/tensoreval/internal/tensor"
)

// DefaultCacheSize is the number of plans kept per plan kind.
const DefaultCacheSize = 1024

// JoinPlans bundles everything needed to join values of one type pair.
type JoinPlans struct {
	OutType tensor.ValueType
	Dense   DenseJoinPlan
	Sparse  SparseJoinPlan
}

// NewJoinPlans computes the output type and both plans, failing on incompatible types.
func NewJoinPlans(lhs, rhs tensor.ValueType) (*JoinPlans, error) {
	out, err := tensor.JoinTypes(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return &JoinPlans{
		OutType: out,
		Dense:   NewDenseJoinPlan(lhs, rhs),
		Sparse:  NewSparseJoinPlan(lhs, rhs),
	}, nil
}

// ReducePlans bundles everything needed to reduce values of one type.
type ReducePlans struct {
	OutType tensor.ValueType
	Dense   DenseReducePlan
	Sparse  SparseReducePlan
}

// NewReducePlans computes the output type and both plans, failing on unknown dimensions.
func NewReducePlans(in tensor.ValueType, dims []string) (*ReducePlans, error) {
	out, err := in.Reduce(dims...)
	if err != nil {
		return nil, err
	}
	return &ReducePlans{
		OutType: out,
		Dense:   NewDenseReducePlan(in, dims),
		Sparse:  NewSparseReducePlan(in, dims),
	}, nil
}

// Cache memoizes plans by type. It is safe for concurrent use.
type Cache struct {
	joins   *lru.Cache[string, *JoinPlans]
	reduces *lru.Cache[string, *ReducePlans]
}

// NewCache creates a cache holding up to size plans of each kind.
func NewCache(size int) (*Cache, error) {
	joins, err := lru.New[string, *JoinPlans](size)
	if err != nil {
		return nil, errors.Wrap(err, "join plan cache")
	}
	reduces, err := lru.New[string, *ReducePlans](size)
	if err != nil {
		return nil, errors.Wrap(err, "reduce plan cache")
	}
	return &Cache{joins: joins, reduces: reduces}, nil
}

// JoinPlans returns the cached plans for the type pair, building them on a miss.
func (c *Cache) JoinPlans(lhs, rhs tensor.ValueType) (*JoinPlans, error) {
	key := lhs.String() + "|" + rhs.String()
	if p, ok := c.joins.Get(key); ok {
		return p, nil
	}
	p, err := NewJoinPlans(lhs, rhs)
	if err != nil {
		return nil, err
	}
	c.joins.Add(key, p)
	return p, nil
}

// ReducePlans returns the cached plans for reducing dims of in, building them on a miss.
func (c *Cache) ReducePlans(in tensor.ValueType, dims []string) (*ReducePlans, error) {
	key := in.String() + "|" + strings.Join(dims, ",")
	if p, ok := c.reduces.Get(key); ok {
		return p, nil
	}
	p, err := NewReducePlans(in, dims)
	if err != nil {
		return nil, err
	}
	c.reduces.Add(key, p)
	return p, nil
}

// Len returns the number of cached join and reduce plans.
func (c *Cache) Len() (joins, reduces int) {
	return c.joins.Len(), c.reduces.Len()
}
