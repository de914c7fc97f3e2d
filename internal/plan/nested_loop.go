package plan

// runNestedLoop walks the cartesian product of loop, advancing two offsets by their strides,
// and calls f once per innermost iteration. An empty loop runs f exactly once.
func runNestedLoop(a, b int, loop, strideA, strideB []int, f func(a, b int)) {
	switch len(loop) {
	case 0:
		f(a, b)
	case 1:
		for i := 0; i < loop[0]; i++ {
			f(a, b)
			a += strideA[0]
			b += strideB[0]
		}
	default:
		for i := 0; i < loop[0]; i++ {
			runNestedLoop(a, b, loop[1:], strideA[1:], strideB[1:], f)
			a += strideA[0]
			b += strideB[0]
		}
	}
}

// computeStrides assigns each loop the product of the later loops that belong to the operand,
// and 0 to loops the operand does not take part in.
func computeStrides(loop []int, member []bool) []int {
	strides := make([]int, len(loop))
	prod := 1
	for i := len(loop) - 1; i >= 0; i-- {
		if member[i] {
			strides[i] = prod
			prod *= loop[i]
		}
	}
	return strides
}
