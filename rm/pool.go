package rm

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// Allocate claims one resource. A concrete id succeeds only if it is owned by this instance and
// free, failing with ErrNotOwned or ErrResourceUnavailable otherwise. Any claims the lowest id
// that is owned, unreserved and free, failing with ErrAllUnavailable if there is none.
func (i *Instance) Allocate(res Resource) (uint32, error) {
	return i.AllocateFrom(res, 0)
}

// AllocateFrom behaves like Allocate, but an Any request only considers ids at or above floor
func (i *Instance) AllocateFrom(res Resource, floor uint32) (uint32, error) {
	i.logger.Debug("Instance::Allocate", slog.String("Resource", res.String()), slog.Int("Floor", int(floor)))

	err := i.controller.config.validateResource(res)
	if err != nil {
		return 0, err
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	err = i.checkOpen()
	if err != nil {
		return 0, err
	}

	id, err := i.claim(res, floor)
	if err != nil {
		return 0, err
	}

	i.controller.Masked(func() {
		i.exposeResource(res.Kind, id)
	})
	return id, nil
}

func (i *Instance) claim(res Resource, floor uint32) (uint32, error) {
	kind := res.Kind
	allocated := &i.allocated[kind]

	id, concrete := res.ID.Value()
	if concrete {
		if !i.owned[kind].Contains(int(id)) {
			return 0, errors.Wrapf(edmautils.ErrNotOwned, "%s %d", kind, id)
		}
		if allocated.Contains(int(id)) {
			return 0, errors.Wrapf(edmautils.ErrResourceUnavailable, "%s %d", kind, id)
		}
		allocated.Add(int(id))
		return id, nil
	}

	free := i.owned[kind].Without(i.reserved[kind], *allocated)
	next, ok := free.Next(int(floor))
	if !ok {
		return 0, errors.Wrapf(edmautils.ErrAllUnavailable, "no %s is available", kind)
	}
	allocated.Add(next)
	return uint32(next), nil
}

// AllocateContiguous claims count consecutive resources starting at a concrete id, or the first
// such run of owned, unreserved, free ids for Any. Either the whole run is claimed or none of it.
func (i *Instance) AllocateContiguous(res Resource, count uint32) (uint32, error) {
	i.logger.Debug("Instance::AllocateContiguous", slog.String("Resource", res.String()), slog.Int("Count", int(count)))

	err := i.controller.config.validateResource(res)
	if err != nil {
		return 0, err
	}
	limit := i.controller.config.count(res.Kind)
	if count == 0 || count > limit {
		return 0, errors.Wrapf(edmautils.ErrInvalidParam, "count is %d, must be between 1 and %d", count, limit)
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	err = i.checkOpen()
	if err != nil {
		return 0, err
	}

	kind := res.Kind
	allocated := &i.allocated[kind]

	first, concrete := res.ID.Value()
	if concrete {
		if first+count > limit {
			return 0, errors.Wrapf(edmautils.ErrInvalidParam, "%s run %d+%d exceeds %d", kind, first, count, limit)
		}
		if !i.owned[kind].ContainsRange(int(first), int(count)) {
			return 0, errors.Wrapf(edmautils.ErrNotOwned, "%s run %d+%d", kind, first, count)
		}
		for id := first; id < first+count; id++ {
			if allocated.Contains(int(id)) {
				return 0, errors.Wrapf(edmautils.ErrResourceUnavailable, "%s %d in run %d+%d", kind, id, first, count)
			}
		}
	} else {
		free := i.owned[kind].Without(i.reserved[kind], *allocated)
		start, ok := free.NextRun(0, int(count))
		if !ok {
			return 0, errors.Wrapf(edmautils.ErrAllUnavailable, "no run of %d %s is available", count, kind)
		}
		first = uint32(start)
	}

	allocated.AddRange(int(first), int(count))
	i.controller.Masked(func() {
		for id := first; id < first+count; id++ {
			i.exposeResource(kind, id)
		}
	})
	return first, nil
}

// Free releases one resource. It fails with ErrNotOwned if the resource is outside this
// instance's partition and ErrAlreadyFree if it is not allocated.
func (i *Instance) Free(res Resource) error {
	i.logger.Debug("Instance::Free", slog.String("Resource", res.String()))

	err := i.controller.config.validateResource(res)
	if err != nil {
		return err
	}
	id, concrete := res.ID.Value()
	if !concrete {
		return errors.Wrap(edmautils.ErrInvalidParam, "a concrete id is required to free a resource")
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	err = i.checkOpen()
	if err != nil {
		return err
	}

	err = i.release(res.Kind, id)
	if err != nil {
		return err
	}

	i.controller.Masked(func() {
		i.hideResource(res.Kind, id)
	})
	return nil
}

func (i *Instance) release(kind ResourceKind, id uint32) error {
	if !i.owned[kind].Contains(int(id)) {
		return errors.Wrapf(edmautils.ErrNotOwned, "%s %d", kind, id)
	}
	if !i.allocated[kind].Contains(int(id)) {
		return errors.Wrapf(edmautils.ErrAlreadyFree, "%s %d", kind, id)
	}
	i.allocated[kind].Remove(int(id))
	return nil
}

// FreeContiguous releases count consecutive resources. Nothing is released unless every id in
// the run is owned and allocated.
func (i *Instance) FreeContiguous(kind ResourceKind, first uint32, count uint32) error {
	i.logger.Debug("Instance::FreeContiguous", slog.String("Kind", kind.String()), slog.Int("First", int(first)), slog.Int("Count", int(count)))

	err := i.controller.config.validateResource(Resource{Kind: kind, ID: Concrete(first)})
	if err != nil {
		return err
	}
	if count == 0 || first+count > i.controller.config.count(kind) {
		return errors.Wrapf(edmautils.ErrInvalidParam, "%s run %d+%d is out of range", kind, first, count)
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	err = i.checkOpen()
	if err != nil {
		return err
	}

	if !i.owned[kind].ContainsRange(int(first), int(count)) {
		return errors.Wrapf(edmautils.ErrNotOwned, "%s run %d+%d", kind, first, count)
	}
	if !i.allocated[kind].ContainsRange(int(first), int(count)) {
		return errors.Wrapf(edmautils.ErrAlreadyFree, "%s run %d+%d is not fully allocated", kind, first, count)
	}

	i.allocated[kind].RemoveRange(int(first), int(count))
	i.controller.Masked(func() {
		for id := first; id < first+count; id++ {
			i.hideResource(kind, id)
		}
	})
	return nil
}

func (i *Instance) clearParam(slot uint32) {
	if !i.paramClear {
		return
	}
	cc := i.controller.cc
	for word := 0; word < regs.ParamWords; word++ {
		cc.WriteParam(slot, word, 0)
	}
}

// exposeResource makes a newly allocated resource visible to this region. Interrupts must be masked.
func (i *Instance) exposeResource(kind ResourceKind, id uint32) {
	cc := i.controller.cc
	switch kind {
	case DmaChannel:
		cc.SetRegionAccess(i.region, id, true)
		i.shadow.Strobe(regs.EECR, id)
	case QdmaChannel:
		cc.SetQdmaRegionAccess(i.region, id, true)
	case Tcc:
		cc.SetRegionAccess(i.region, id, true)
		i.publishTccs()
	case ParamSet:
		i.clearParam(id)
	}
}

// publishTccs copies the master's allocated TCCs to where the completion handler reads them.
// Interrupts must be masked.
func (i *Instance) publishTccs() {
	if !i.master {
		return
	}
	tccs := &i.allocated[Tcc]
	i.controller.isrMasterTccs = [2]uint32{tccs.Word(0), tccs.Word(1)}
}

// hideResource reverses exposeResource. DMA channel n and TCC n share a DRAE bit, which is
// only dropped once neither is allocated. Interrupts must be masked.
func (i *Instance) hideResource(kind ResourceKind, id uint32) {
	cc := i.controller.cc
	switch kind {
	case DmaChannel:
		if !i.allocated[Tcc].Contains(int(id)) {
			cc.SetRegionAccess(i.region, id, false)
		}
	case QdmaChannel:
		cc.SetQdmaRegionAccess(i.region, id, false)
	case Tcc:
		if !i.allocated[DmaChannel].Contains(int(id)) {
			cc.SetRegionAccess(i.region, id, false)
		}
		i.publishTccs()
	case ParamSet:
		i.clearParam(id)
	}
}
