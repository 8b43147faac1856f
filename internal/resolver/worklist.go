package resolver

import (
	"context"

	"github.com/napolitain/upgrade-planner/internal/models"
)

// item is a tentative tree node. Items are only ever appended, so a parent
// always has a lower index than its children.
type item struct {
	req    models.Requirement
	depth  int
	parent int
	pruned bool
}

// worklist is the FIFO state of one ResolveFrom call
type worklist struct {
	items     []item
	queue     []int
	pending   map[models.EntityKey]map[int]int
	satisfied SatisfiedSet
}

func newWorklist(satisfied SatisfiedSet) *worklist {
	return &worklist{
		pending:   make(map[models.EntityKey]map[int]int),
		satisfied: satisfied,
	}
}

// add records a new item under parent and enqueues it
func (w *worklist) add(req models.Requirement, depth, parent int) int {
	idx := len(w.items)
	w.items = append(w.items, item{req: req, depth: depth, parent: parent})
	w.queue = append(w.queue, idx)

	levels, ok := w.pending[req.Entity()]
	if !ok {
		levels = make(map[int]int)
		w.pending[req.Entity()] = levels
	}
	levels[req.Level]++
	return idx
}

func (w *worklist) next() (int, bool) {
	if len(w.queue) == 0 {
		return 0, false
	}
	idx := w.queue[0]
	w.queue = w.queue[1:]

	req := w.items[idx].req
	levels := w.pending[req.Entity()]
	if levels[req.Level]--; levels[req.Level] <= 0 {
		delete(levels, req.Level)
	}
	return idx, true
}

// pendingHas reports whether a not yet dequeued item carries this exact requirement
func (w *worklist) pendingHas(req models.Requirement) bool {
	return w.pending[req.Entity()][req.Level] > 0
}

// prune marks an item and therefore its subtree as dropped. The root is kept.
func (w *worklist) prune(idx int) {
	if w.items[idx].parent < 0 {
		return
	}
	w.items[idx].pruned = true
}

// materialize builds the visible tree: items that are not pruned and have no
// pruned ancestor.
func (w *worklist) materialize(ctx context.Context, source DataSource) (*Node, error) {
	nodes := make([]*Node, len(w.items))
	names := make(map[models.EntityKey]string)

	for i, it := range w.items {
		if it.pruned {
			continue
		}
		if it.parent >= 0 && nodes[it.parent] == nil {
			continue
		}

		key := it.req.Entity()
		name, ok := names[key]
		if !ok {
			var err error
			name, err = source.Name(ctx, key.Type, key.ID)
			if err != nil {
				return nil, err
			}
			names[key] = name
		}

		n := &Node{Requirement: it.req, Name: name, Depth: it.depth}
		nodes[i] = n
		if it.parent >= 0 {
			parent := nodes[it.parent]
			parent.Children = append(parent.Children, n)
		}
	}
	return nodes[0], nil
}
