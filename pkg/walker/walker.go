// Package walker flattens a form arch into the ordered field leaves the
// fuzzer works through.
package walker

import (
	"iter"

	"github.com/goliatone/go-formfuzz/pkg/model"
)

// Fields yields the field leaves under node in depth-first pre-order.
// Containers are flattened and the children of a field leaf are never
// entered, so widgets that embed their own sub view (one2many lists) are
// reported once as the parent field. A node reachable through more than one
// parent is yielded once. The sequence may be ranged over any number of times.
func Fields(node *model.ViewNode) iter.Seq[*model.ViewNode] {
	return func(yield func(*model.ViewNode) bool) {
		if node == nil {
			return
		}
		seen := make(map[*model.ViewNode]struct{})
		walk(node, seen, yield)
	}
}

func walk(node *model.ViewNode, seen map[*model.ViewNode]struct{}, yield func(*model.ViewNode) bool) bool {
	if node == nil {
		return true
	}
	if _, ok := seen[node]; ok {
		return true
	}
	seen[node] = struct{}{}
	if node.IsField() {
		return yield(node)
	}
	for _, child := range node.Children {
		if !walk(child, seen, yield) {
			return false
		}
	}
	return true
}

// Walk collects Fields into a slice.
func Walk(node *model.ViewNode) []*model.ViewNode {
	var out []*model.ViewNode
	for leaf := range Fields(node) {
		out = append(out, leaf)
	}
	return out
}

// Names returns the field names in walk order.
func Names(node *model.ViewNode) []string {
	var out []string
	for leaf := range Fields(node) {
		out = append(out, leaf.Name())
	}
	return out
}
