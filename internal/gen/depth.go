package gen

import "github.com/hargabyte/bindgen/internal/cparse"

// UnboundedDepth disables the include depth ceiling.
const UnboundedDepth = -1

// ComputeDepths maps every file reachable from root within maxDepth include
// hops to its depth (root = 0). Propagation is a breadth-first relaxation
// over the inclusion edge list: a file's depth, once set, may only be
// lowered by a shorter path, never raised, and each file enters the
// frontier at most once per lowering. Cycles in the edge list therefore
// cannot loop forever even with UnboundedDepth.
func ComputeDepths(root string, edges []cparse.IncludeEdge, maxDepth int) map[string]int {
	depths := map[string]int{root: 0}
	if maxDepth == 0 {
		return depths
	}

	children := make(map[string][]string)
	for _, e := range edges {
		children[e.From] = append(children[e.From], e.To)
	}

	frontier := []string{root}
	for depth := 1; len(frontier) > 0; depth++ {
		if maxDepth != UnboundedDepth && depth > maxDepth {
			break
		}
		var next []string
		for _, file := range frontier {
			for _, child := range children[file] {
				if existing, ok := depths[child]; ok && existing <= depth {
					continue
				}
				depths[child] = depth
				next = append(next, child)
			}
		}
		frontier = next
	}

	return depths
}
