package gpdag

// RootwardOrder returns every node id in an order where each node appears
// after all of its leafward children, so a pass computing below-node
// vectors can process the ids front to back. The order is a post-order
// depth-first walk from each rootsplit node over the leafward adjacency,
// sorted children before rotated.
func (d *DAG) RootwardOrder() []int {
	visited := make([]bool, len(d.nodes))
	order := make([]int, 0, len(d.nodes))
	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		n := d.nodes[id]
		for _, c := range n.leafwardSorted {
			if !visited[c] {
				visit(c)
			}
		}
		for _, c := range n.leafwardRotated {
			if !visited[c] {
				visit(c)
			}
		}
		order = append(order, id)
	}
	for _, rs := range d.rootsplits {
		if id := d.rootNodeID(rs); !visited[id] {
			visit(id)
		}
	}
	return order
}

// LeafwardOrder returns every node id in an order where each node appears
// after all of its rootward parents, so a pass computing above-node
// vectors can process the ids front to back. The order is a post-order
// depth-first walk from each leaf over the rootward adjacency, sorted
// parents before rotated.
func (d *DAG) LeafwardOrder() []int {
	visited := make([]bool, len(d.nodes))
	order := make([]int, 0, len(d.nodes))
	var visit func(id int)
	visit = func(id int) {
		visited[id] = true
		n := d.nodes[id]
		for _, p := range n.rootwardSorted {
			if !visited[p] {
				visit(p)
			}
		}
		for _, p := range n.rootwardRotated {
			if !visited[p] {
				visit(p)
			}
		}
		order = append(order, id)
	}
	for taxon := 0; taxon < d.taxonCount; taxon++ {
		if !visited[taxon] {
			visit(taxon)
		}
	}
	return order
}
