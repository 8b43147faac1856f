package efficiency

import (
	"errors"
	"sync"

	"github.com/napolitain/upgrade-planner/internal/models"
)

var (
	// ErrMissingBuff means the referenced buff is not in the current index
	ErrMissingBuff = errors.New("efficiency: missing buff")
	// ErrStaleBuff means the reference was taken before the last reload
	ErrStaleBuff = errors.New("efficiency: stale buff reference")
)

// BuffRef is a buff id bound to the index generation it was taken from
type BuffRef struct {
	ID         int64  `json:"buff_id"`
	Generation uint64 `json:"generation"`
}

// BuffIndex maps buff ids to buffs. Every Reset or Invalidate starts a new
// generation and references from older generations no longer resolve.
type BuffIndex struct {
	mu         sync.RWMutex
	generation uint64
	buffs      map[int64]*models.Buff
}

func NewBuffIndex() *BuffIndex {
	return &BuffIndex{buffs: make(map[int64]*models.Buff)}
}

// Reset replaces the indexed buffs and starts a new generation
func (ix *BuffIndex) Reset(buffs []*models.Buff) uint64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.generation++
	ix.buffs = make(map[int64]*models.Buff, len(buffs))
	for _, b := range buffs {
		ix.buffs[b.ID] = b
	}
	return ix.generation
}

// Invalidate drops every buff and starts a new generation
func (ix *BuffIndex) Invalidate() {
	ix.Reset(nil)
}

func (ix *BuffIndex) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation
}

// Ref returns a reference to id in the current generation
func (ix *BuffIndex) Ref(id int64) BuffRef {
	return BuffRef{ID: id, Generation: ix.Generation()}
}

// Get resolves a reference
func (ix *BuffIndex) Get(ref BuffRef) (*models.Buff, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ref.Generation != ix.generation {
		return nil, ErrStaleBuff
	}
	b, ok := ix.buffs[ref.ID]
	if !ok {
		return nil, ErrMissingBuff
	}
	return b, nil
}

func (ix *BuffIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.buffs)
}
