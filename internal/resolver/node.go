package resolver

import (
	"github.com/napolitain/upgrade-planner/internal/models"
)

// Node is one requirement in a resolved prerequisite tree.
// Cost fields are filled in by the cost package.
type Node struct {
	models.Requirement
	Name     string         `json:"name"`
	Depth    int            `json:"depth"`
	Children []*Node        `json:"children,omitempty"`
	BaseCost models.Counter `json:"base_cost,omitempty"`
	BaseTime models.Counter `json:"base_time,omitempty"`
	NetCost  models.Counter `json:"net_cost,omitempty"`
	NetTime  models.Counter `json:"net_time,omitempty"`
}

// Walk visits the node and its descendants depth-first in child order.
// Returning false from fn skips the subtree below that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// All returns every node of the tree in depth-first order
func (n *Node) All() []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		out = append(out, x)
		return true
	})
	return out
}

// Len returns the number of nodes in the tree
func (n *Node) Len() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}

// Find returns the first node matching the exact requirement, or nil
func (n *Node) Find(req models.Requirement) *Node {
	var found *Node
	n.Walk(func(x *Node) bool {
		if found != nil {
			return false
		}
		if x.Requirement == req {
			found = x
			return false
		}
		return true
	})
	return found
}
