package regs

import (
	"github.com/usbarmory/tamago/bits"
)

// Bank is a view of a register window rebased at a fixed offset. The channel controller's
// global channel registers and each shadow region's registers share one layout, so the same
// Pair offsets address either through a Bank.
type Bank struct {
	w    Window
	base uint32
}

func (b Bank) Read(reg uint32) uint32 {
	return b.w.Read32(b.base + reg)
}

func (b Bank) Write(reg uint32, value uint32) {
	b.w.Write32(b.base+reg, value)
}

// Modify performs a read-modify-write of the field at pos, masked by mask
func (b Bank) Modify(reg uint32, pos int, mask int, value uint32) {
	word := b.Read(reg)
	bits.SetN(&word, pos, mask, value)
	b.Write(reg, word)
}

// Field reads the field at pos, masked by mask
func (b Bank) Field(reg uint32, pos int, mask int) uint32 {
	word := b.Read(reg)
	return bits.Get(&word, pos, mask)
}

func pairWord(reg Pair, channel uint32) (uint32, int) {
	if channel < 32 {
		return uint32(reg), int(channel)
	}
	return uint32(reg) + 4, int(channel - 32)
}

// Strobe writes a single set bit for channel into a pair register, which is how the
// set, clear and write-one-to-clear registers are driven
func (b Bank) Strobe(reg Pair, channel uint32) {
	offset, pos := pairWord(reg, channel)
	var word uint32
	bits.Set(&word, pos)
	b.Write(offset, word)
}

// Test reports whether channel's bit is set in a pair register
func (b Bank) Test(reg Pair, channel uint32) bool {
	offset, pos := pairWord(reg, channel)
	word := b.Read(offset)
	return bits.Get(&word, pos, 1) == 1
}

// ReadPair returns the low and high words of a pair register
func (b Bank) ReadPair(reg Pair) (uint32, uint32) {
	return b.Read(uint32(reg)), b.Read(uint32(reg) + 4)
}

// WritePair writes the low and high words of a pair register
func (b Bank) WritePair(reg Pair, low, high uint32) {
	b.Write(uint32(reg), low)
	b.Write(uint32(reg)+4, high)
}

// StrobeQdma writes a single set bit for a QDMA channel into a QDMA register
func (b Bank) StrobeQdma(reg uint32, channel uint32) {
	var word uint32
	bits.Set(&word, int(channel))
	b.Write(reg, word)
}

// TestQdma reports whether a QDMA channel's bit is set
func (b Bank) TestQdma(reg uint32, channel uint32) bool {
	word := b.Read(reg)
	return bits.Get(&word, int(channel), 1) == 1
}

// CC is the channel controller register block
type CC struct {
	Bank
}

func NewCC(w Window) *CC {
	return &CC{Bank: Bank{w: w}}
}

// Global is the controller-wide view of the channel registers
func (c *CC) Global() Bank {
	return Bank{w: c.w, base: GlobalChannelBase}
}

// Shadow is region's view of the channel registers. Reads only reflect the channels the region
// was granted through DRAE and QRAE.
func (c *CC) Shadow(region uint32) Bank {
	return Bank{w: c.w, base: ShadowRegionBase + region*ShadowRegionSize}
}

// ParamOffset is the byte offset of a PaRAM set from the start of the controller block
func (c *CC) ParamOffset(slot uint32) uint32 {
	return ParamBase + slot*ParamSize
}

func (c *CC) ReadParam(slot uint32, word int) uint32 {
	return c.Read(c.ParamOffset(slot) + uint32(word)*4)
}

func (c *CC) WriteParam(slot uint32, word int, value uint32) {
	c.Write(c.ParamOffset(slot)+uint32(word)*4, value)
}

const (
	paEntryPos  = 5
	paEntryMask = 0x1FF
	trWordPos   = 2
	trWordMask  = 0x7
	queuePos    = 4
	queueMask   = 0x7
)

// SetChannelParam points a DMA channel at a PaRAM set through DCHMAP
func (c *CC) SetChannelParam(channel uint32, slot uint32) {
	c.Modify(DCHMAP+channel*4, paEntryPos, paEntryMask, slot)
}

func (c *CC) ChannelParam(channel uint32) uint32 {
	return c.Field(DCHMAP+channel*4, paEntryPos, paEntryMask)
}

// SetQdmaParam points a QDMA channel at a PaRAM set and selects its trigger word
func (c *CC) SetQdmaParam(channel uint32, slot uint32, trigWord uint32) {
	reg := QCHMAP + channel*4
	word := c.Read(reg)
	bits.SetN(&word, paEntryPos, paEntryMask, slot)
	bits.SetN(&word, trWordPos, trWordMask, trigWord)
	c.Write(reg, word)
}

func (c *CC) QdmaParam(channel uint32) uint32 {
	return c.Field(QCHMAP+channel*4, paEntryPos, paEntryMask)
}

func (c *CC) SetQdmaTrigWord(channel uint32, trigWord uint32) {
	c.Modify(QCHMAP+channel*4, trWordPos, trWordMask, trigWord)
}

func (c *CC) QdmaTrigWord(channel uint32) uint32 {
	return c.Field(QCHMAP+channel*4, trWordPos, trWordMask)
}

// SetDmaQueue selects the event queue for a DMA channel in DMAQNUM, eight channels per word
func (c *CC) SetDmaQueue(channel uint32, queue uint32) {
	c.Modify(DMAQNUM+(channel/8)*4, int(channel%8)*queuePos, queueMask, queue)
}

func (c *CC) DmaQueue(channel uint32) uint32 {
	return c.Field(DMAQNUM+(channel/8)*4, int(channel%8)*queuePos, queueMask)
}

func (c *CC) SetQdmaQueue(channel uint32, queue uint32) {
	c.Modify(QDMAQNUM, int(channel)*queuePos, queueMask, queue)
}

func (c *CC) QdmaQueue(channel uint32) uint32 {
	return c.Field(QDMAQNUM, int(channel)*queuePos, queueMask)
}

func (c *CC) SetQueuePriority(queue uint32, priority uint32) {
	c.Modify(QUEPRI, int(queue)*queuePos, queueMask, priority)
}

func (c *CC) QueuePriority(queue uint32) uint32 {
	return c.Field(QUEPRI, int(queue)*queuePos, queueMask)
}

// SetQueueTC selects the transfer controller that services an event queue
func (c *CC) SetQueueTC(queue uint32, tc uint32) {
	c.Modify(QUETCMAP, int(queue)*queuePos, queueMask, tc)
}

// SetRegionAccess grants or revokes a shadow region's view of a DMA channel or TCC
func (c *CC) SetRegionAccess(region uint32, channel uint32, enable bool) {
	offset, pos := pairWord(Pair(DRAE+region*8), channel)
	var value uint32
	if enable {
		value = 1
	}
	c.Modify(offset, pos, 1, value)
}

func (c *CC) RegionAccess(region uint32, channel uint32) bool {
	offset, pos := pairWord(Pair(DRAE+region*8), channel)
	return c.Field(offset, pos, 1) == 1
}

// SetQdmaRegionAccess grants or revokes a shadow region's view of a QDMA channel
func (c *CC) SetQdmaRegionAccess(region uint32, channel uint32, enable bool) {
	var value uint32
	if enable {
		value = 1
	}
	c.Modify(QRAE+region*4, int(channel), 1, value)
}

func (c *CC) QdmaRegionAccess(region uint32, channel uint32) bool {
	return c.Field(QRAE+region*4, int(channel), 1) == 1
}

// TC is a transfer controller register block
type TC struct {
	Bank
}

func NewTC(w Window) *TC {
	return &TC{Bank: Bank{w: w}}
}
