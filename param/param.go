package param

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/usbarmory/tamago/bits"
	"github.com/vkngwrapper/edma3/edmautils"
)

// NoLink is the LinkAddr value that terminates a transfer instead of reloading another set
const NoLink uint16 = 0xFFFF

// Entry identifies one of the eight 32-bit words of a PaRAM set
type Entry int

const (
	EntryOpt Entry = iota
	EntrySrc
	EntryACntBCnt
	EntryDst
	EntrySrcDstBIdx
	EntryLinkBCntReload
	EntrySrcDstCIdx
	EntryCCnt

	// EntryCount is the number of words in a PaRAM set
	EntryCount int = 8
)

var entryNames = [...]string{
	"EntryOpt",
	"EntrySrc",
	"EntryACntBCnt",
	"EntryDst",
	"EntrySrcDstBIdx",
	"EntryLinkBCntReload",
	"EntrySrcDstCIdx",
	"EntryCCnt",
}

func (e Entry) String() string {
	if e < 0 || int(e) >= EntryCount {
		return fmt.Sprintf("Entry(%d)", int(e))
	}
	return entryNames[e]
}

func (e Entry) Validate() error {
	if e < 0 || int(e) >= EntryCount {
		return errors.Wrapf(edmautils.ErrInvalidParam, "param entry %d is out of range", int(e))
	}
	return nil
}

// Field identifies one logical field of a PaRAM set. Several fields share a word.
type Field int

const (
	FieldOpt Field = iota
	FieldSrcAddr
	FieldACnt
	FieldBCnt
	FieldDestAddr
	FieldSrcBIdx
	FieldDestBIdx
	FieldLinkAddr
	FieldBCntReload
	FieldSrcCIdx
	FieldDestCIdx
	FieldCCnt

	fieldCount
)

type fieldLayout struct {
	name  string
	entry Entry
	pos   int
	mask  int
}

var fieldLayouts = [fieldCount]fieldLayout{
	FieldOpt:        {"FieldOpt", EntryOpt, 0, 0},
	FieldSrcAddr:    {"FieldSrcAddr", EntrySrc, 0, 0},
	FieldACnt:       {"FieldACnt", EntryACntBCnt, 0, 0xFFFF},
	FieldBCnt:       {"FieldBCnt", EntryACntBCnt, 16, 0xFFFF},
	FieldDestAddr:   {"FieldDestAddr", EntryDst, 0, 0},
	FieldSrcBIdx:    {"FieldSrcBIdx", EntrySrcDstBIdx, 0, 0xFFFF},
	FieldDestBIdx:   {"FieldDestBIdx", EntrySrcDstBIdx, 16, 0xFFFF},
	FieldLinkAddr:   {"FieldLinkAddr", EntryLinkBCntReload, 0, 0xFFFF},
	FieldBCntReload: {"FieldBCntReload", EntryLinkBCntReload, 16, 0xFFFF},
	FieldSrcCIdx:    {"FieldSrcCIdx", EntrySrcDstCIdx, 0, 0xFFFF},
	FieldDestCIdx:   {"FieldDestCIdx", EntrySrcDstCIdx, 16, 0xFFFF},
	FieldCCnt:       {"FieldCCnt", EntryCCnt, 0, 0xFFFF},
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldLayouts[f].name
}

func (f Field) Validate() error {
	if f < 0 || f >= fieldCount {
		return errors.Wrapf(edmautils.ErrInvalidParam, "param field %d is out of range", int(f))
	}
	return nil
}

// Entry is the word of the set that holds the field
func (f Field) Entry() Entry {
	return fieldLayouts[f].entry
}

// Packed reports whether the field shares its word with another field
func (f Field) Packed() bool {
	return fieldLayouts[f].mask != 0
}

// Get extracts the field from the word that holds it
func (f Field) Get(word uint32) uint32 {
	layout := fieldLayouts[f]
	if layout.mask == 0 {
		return word
	}
	return bits.Get(&word, layout.pos, layout.mask)
}

// Put returns word with the field replaced by value. Values that do not fit the field's
// width are rejected with ErrInvalidParam and word is returned unchanged.
func (f Field) Put(word uint32, value uint32) (uint32, error) {
	layout := fieldLayouts[f]
	if layout.mask == 0 {
		return value, nil
	}
	if value > uint32(layout.mask) {
		return word, errors.Wrapf(edmautils.ErrInvalidParam, "%s value 0x%x exceeds 0x%x", f, value, layout.mask)
	}
	bits.SetN(&word, layout.pos, layout.mask, value)
	return word, nil
}

// Set is a transfer descriptor with every field unpacked
type Set struct {
	Opt        uint32
	SrcAddr    uint32
	ACnt       uint16
	BCnt       uint16
	DestAddr   uint32
	SrcBIdx    int16
	DestBIdx   int16
	LinkAddr   uint16
	BCntReload uint16
	SrcCIdx    int16
	DestCIdx   int16
	CCnt       uint16
}

// Words is a PaRAM set in its register layout
type Words [8]uint32

func pack(low uint16, high uint16) uint32 {
	word := uint32(low)
	bits.SetN(&word, 16, 0xFFFF, uint32(high))
	return word
}

func unpack(word uint32) (uint16, uint16) {
	return uint16(bits.Get(&word, 0, 0xFFFF)), uint16(bits.Get(&word, 16, 0xFFFF))
}

// Pack encodes the set into its register layout
func (p Set) Pack() Words {
	return Words{
		EntryOpt:            p.Opt,
		EntrySrc:            p.SrcAddr,
		EntryACntBCnt:       pack(p.ACnt, p.BCnt),
		EntryDst:            p.DestAddr,
		EntrySrcDstBIdx:     pack(uint16(p.SrcBIdx), uint16(p.DestBIdx)),
		EntryLinkBCntReload: pack(p.LinkAddr, p.BCntReload),
		EntrySrcDstCIdx:     pack(uint16(p.SrcCIdx), uint16(p.DestCIdx)),
		EntryCCnt:           uint32(p.CCnt),
	}
}

// Unpack decodes a set from its register layout
func Unpack(words Words) Set {
	var p Set
	var srcBIdx, destBIdx, srcCIdx, destCIdx uint16

	p.Opt = words[EntryOpt]
	p.SrcAddr = words[EntrySrc]
	p.ACnt, p.BCnt = unpack(words[EntryACntBCnt])
	p.DestAddr = words[EntryDst]
	srcBIdx, destBIdx = unpack(words[EntrySrcDstBIdx])
	p.LinkAddr, p.BCntReload = unpack(words[EntryLinkBCntReload])
	srcCIdx, destCIdx = unpack(words[EntrySrcDstCIdx])
	p.CCnt, _ = unpack(words[EntryCCnt])

	p.SrcBIdx, p.DestBIdx = int16(srcBIdx), int16(destBIdx)
	p.SrcCIdx, p.DestCIdx = int16(srcCIdx), int16(destCIdx)
	return p
}
