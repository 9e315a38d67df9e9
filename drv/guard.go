package drv

import (
	"github.com/vkngwrapper/edma3/rm"
)

// allocGuard releases everything acquired during a multi-step request unless the request
// commits. Undo steps run in the reverse of the order they were added.
type allocGuard struct {
	instance  *rm.Instance
	undo      []func()
	committed bool
}

func newAllocGuard(instance *rm.Instance) *allocGuard {
	return &allocGuard{instance: instance}
}

// allocate claims a resource at or above floor and arranges for it to be freed on release
func (g *allocGuard) allocate(kind rm.ResourceKind, id rm.ID, floor uint32) (uint32, error) {
	allocated, err := g.instance.AllocateFrom(rm.Resource{Kind: kind, ID: id}, floor)
	if err != nil {
		return 0, err
	}

	g.onRelease(func() {
		_ = g.instance.Free(rm.Resource{Kind: kind, ID: rm.Concrete(allocated)})
	})
	return allocated, nil
}

func (g *allocGuard) onRelease(f func()) {
	g.undo = append(g.undo, f)
}

func (g *allocGuard) commit() {
	g.committed = true
}

func (g *allocGuard) release() {
	if g.committed {
		return
	}
	for i := len(g.undo) - 1; i >= 0; i-- {
		g.undo[i]()
	}
	g.undo = nil
}
