package rm

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
)

// ResourceKind is one of the four hardware pools managed by an Instance
type ResourceKind int

const (
	DmaChannel ResourceKind = iota
	QdmaChannel
	Tcc
	ParamSet

	resourceKindCount
)

var resourceKindNames = [resourceKindCount]string{
	DmaChannel:  "DmaChannel",
	QdmaChannel: "QdmaChannel",
	Tcc:         "Tcc",
	ParamSet:    "ParamSet",
}

func (k ResourceKind) String() string {
	if k < 0 || k >= resourceKindCount {
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
	return resourceKindNames[k]
}

// ResourceKinds lists every kind in the order statistics report them
var ResourceKinds = []ResourceKind{DmaChannel, QdmaChannel, Tcc, ParamSet}

// ID is either a concrete resource id or a request for any free resource of a kind
type ID struct {
	value uint32
	any   bool
}

// Concrete requests exactly the resource id
func Concrete(id uint32) ID {
	return ID{value: id}
}

// Any requests the lowest free, owned, unreserved resource of a kind
func Any() ID {
	return ID{any: true}
}

func (i ID) IsAny() bool {
	return i.any
}

// Value returns the concrete id, and false for Any
func (i ID) Value() (uint32, bool) {
	return i.value, !i.any
}

func (i ID) String() string {
	if i.any {
		return "Any"
	}
	return fmt.Sprintf("%d", i.value)
}

// Resource identifies one resource, or any resource, of a kind
type Resource struct {
	Kind ResourceKind
	ID   ID
}

func (r Resource) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.ID)
}

// OptionalID is a resource id that may be absent
type OptionalID struct {
	value uint32
	valid bool
}

// None is the absent OptionalID
var None = OptionalID{}

func Some(id uint32) OptionalID {
	return OptionalID{value: id, valid: true}
}

func (o OptionalID) Get() (uint32, bool) {
	return o.value, o.valid
}

func (o OptionalID) IsSome() bool {
	return o.valid
}

func (o OptionalID) String() string {
	if !o.valid {
		return "None"
	}
	return fmt.Sprintf("%d", o.value)
}

func (c *GlobalConfig) count(kind ResourceKind) uint32 {
	switch kind {
	case DmaChannel:
		return c.NumDmaChannels
	case QdmaChannel:
		return c.NumQdmaChannels
	case Tcc:
		return c.NumTccs
	case ParamSet:
		return c.NumParamSets
	}
	return 0
}

func (c *GlobalConfig) validateResource(res Resource) error {
	if res.Kind < 0 || res.Kind >= resourceKindCount {
		return errors.Wrapf(edmautils.ErrInvalidParam, "resource kind %d is out of range", int(res.Kind))
	}
	if id, concrete := res.ID.Value(); concrete {
		return edmautils.CheckRange(id, c.count(res.Kind), res.Kind.String())
	}
	return nil
}
