package eval

// MutabilityProof records, for a whole expression tree, which node results may be overwritten
// by their single consumer. It is computed once at compile time.
//
// A parameter is mutable only when the caller declared it so and it is read exactly once.
// Constants are never mutable. Any other node is mutable when its result is consumed at most
// once, and a view node additionally requires the node it borrows from to be mutable.
type MutabilityProof struct {
	refs          map[Node]int
	paramRefs     map[int]int
	mutableParams map[int]bool
	aliases       map[Node]Node
}

// ProveMutability analyzes root. mutableParams lists the parameter indexes the caller allows
// to be overwritten.
func ProveMutability(root Node, mutableParams ...int) *MutabilityProof {
	p := &MutabilityProof{
		refs:          make(map[Node]int),
		paramRefs:     make(map[int]int),
		mutableParams: make(map[int]bool),
		aliases:       make(map[Node]Node),
	}
	for _, idx := range mutableParams {
		p.mutableParams[idx] = true
	}
	// Shared subtrees are compiled once per reference, so every path counts.
	var count func(n Node)
	count = func(n Node) {
		for _, child := range n.Children() {
			p.refs[child]++
			if param, ok := child.(*Param); ok {
				p.paramRefs[param.Index]++
			}
			count(child)
		}
	}
	if param, ok := root.(*Param); ok {
		p.paramRefs[param.Index]++
	}
	count(root)
	// Lambda bindings read outer parameters without being children.
	Walk(root, func(n Node) {
		if l, ok := n.(*Lambda); ok {
			for _, idx := range l.Bindings {
				p.paramRefs[idx]++
			}
		}
	})
	return p
}

// Alias makes replacement inherit the reference count of original.
func (p *MutabilityProof) Alias(replacement, original Node) {
	if o, ok := p.aliases[original]; ok {
		original = o
	}
	p.aliases[replacement] = original
}

func (p *MutabilityProof) refCount(n Node) int {
	if o, ok := p.aliases[n]; ok {
		n = o
	}
	return p.refs[n]
}

// IsMutable reports whether the result of n may be overwritten by its consumer.
func (p *MutabilityProof) IsMutable(n Node) bool {
	switch n := n.(type) {
	case *Param:
		return p.mutableParams[n.Index] && p.paramRefs[n.Index] <= 1
	case *Const:
		return false
	case ViewNode:
		if src := n.ViewOf(); src != nil {
			return p.refCount(n) <= 1 && p.IsMutable(src)
		}
	}
	return p.refCount(n) <= 1
}
