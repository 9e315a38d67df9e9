package regs

import (
	"sync"

	"github.com/usbarmory/tamago/bits"
)

const (
	optTccPos     = 12
	optTccMask    = 0x3F
	optTcIntEnPos = 20
	optTcChEnPos  = 22
)

// SimulatorOptions controls the behavior of a Simulator
type SimulatorOptions struct {
	// ChannelMapping indicates DCHMAP is honored when resolving the PaRAM set of a manually
	// triggered channel. Without it, channel n uses PaRAM set n.
	ChannelMapping bool
	// AutoComplete services manual triggers immediately: the pending bit is dropped and the
	// completion bit of the set's TCC is raised if its options word enables the interrupt.
	// Chained channels are triggered in turn.
	AutoComplete bool
}

// Simulator is an in-memory model of a channel controller register block. It models the
// set, clear and write-one-to-clear behavior of the channel, QDMA and error registers,
// aliases every shadow region onto the global channel registers (masked by DRAE and QRAE on
// read), and keeps everything else, PaRAM included, as plain storage.
type Simulator struct {
	mutex   sync.Mutex
	options SimulatorOptions
	words   map[uint32]uint32
}

func NewSimulator(options SimulatorOptions) *Simulator {
	return &Simulator{
		options: options,
		words:   make(map[uint32]uint32),
	}
}

// resolve maps a shadow region offset onto the global block, returning the region or -1
func (s *Simulator) resolve(offset uint32) (uint32, int) {
	if offset >= ShadowRegionBase && offset < ShadowRegionBase+8*ShadowRegionSize {
		rel := offset - ShadowRegionBase
		return GlobalChannelBase + rel%ShadowRegionSize, int(rel / ShadowRegionSize)
	}
	return offset, -1
}

func (s *Simulator) regionMask(region int, rel uint32) uint32 {
	switch {
	case rel < uint32(ICR)+8:
		if rel%8 == 0 {
			return s.words[DRAE+uint32(region)*8]
		}
		return s.words[DRAE+uint32(region)*8+4]
	case rel >= QER && rel <= QSECR:
		return s.words[QRAE+uint32(region)*4]
	}
	return 0xFFFFFFFF
}

func (s *Simulator) Read32(offset uint32) uint32 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	offset, region := s.resolve(offset)
	value := s.words[offset]
	if region >= 0 {
		value &= s.regionMask(region, offset-GlobalChannelBase)
	}
	return value
}

func (s *Simulator) Write32(offset uint32, value uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	offset, region := s.resolve(offset)
	if region >= 0 {
		value &= s.regionMask(region, offset-GlobalChannelBase)
	}
	s.write(offset, value)
}

func (s *Simulator) clear(offset uint32, value uint32) {
	s.words[offset] &^= value
}

func (s *Simulator) set(offset uint32, value uint32) {
	s.words[offset] |= value
}

func (s *Simulator) write(offset uint32, value uint32) {
	g := GlobalChannelBase
	switch offset {
	case g + uint32(ECR), g + uint32(ECR) + 4:
		s.clear(offset-uint32(ECR)+uint32(ER), value)
	case g + uint32(ESR), g + uint32(ESR) + 4:
		s.trigger(offset-g-uint32(ESR), value, 0)
	case g + uint32(EECR), g + uint32(EECR) + 4:
		s.clear(offset-uint32(EECR)+uint32(EER), value)
	case g + uint32(EESR), g + uint32(EESR) + 4:
		s.set(offset-uint32(EESR)+uint32(EER), value)
	case g + uint32(SECR), g + uint32(SECR) + 4:
		s.clear(offset-uint32(SECR)+uint32(SER), value)
		s.clear(offset-uint32(SECR)+uint32(ESR), value)
	case g + uint32(IECR), g + uint32(IECR) + 4:
		s.clear(offset-uint32(IECR)+uint32(IER), value)
	case g + uint32(IESR), g + uint32(IESR) + 4:
		s.set(offset-uint32(IESR)+uint32(IER), value)
	case g + uint32(ICR), g + uint32(ICR) + 4:
		s.clear(offset-uint32(ICR)+uint32(IPR), value)
	case g + QEECR:
		s.clear(g+QEER, value)
	case g + QEESR:
		s.set(g+QEER, value)
	case g + QSECR:
		s.clear(g+QSER, value)
	case g + IEVAL:
		s.words[offset] += value & 1
	case uint32(EMCR), uint32(EMCR) + 4:
		s.clear(offset-uint32(EMCR)+uint32(EMR), value)
	case QEMCR:
		s.clear(QEMR, value)
	case CCERRCLR:
		s.clear(CCERR, value)
	default:
		s.words[offset] = value
	}
}

// trigger latches manual events for the channels in value. high is 4 for channels 32-63.
func (s *Simulator) trigger(high uint32, value uint32, depth int) {
	g := GlobalChannelBase
	if !s.options.AutoComplete {
		s.set(g+uint32(ESR)+high, value)
		s.set(g+uint32(SER)+high, value)
		return
	}

	for pos := 0; pos < 32; pos++ {
		if bits.Get(&value, pos, 1) == 0 {
			continue
		}
		channel := uint32(pos) + high*8
		slot := channel
		if s.options.ChannelMapping {
			slot = (s.words[DCHMAP+channel*4] >> 5) & 0x1FF
		}
		opt := s.words[ParamBase+slot*ParamSize]
		tcc := bits.Get(&opt, optTccPos, optTccMask)
		if bits.Get(&opt, optTcIntEnPos, 1) == 1 {
			s.raise(g+uint32(IPR), tcc)
		}
		if bits.Get(&opt, optTcChEnPos, 1) == 1 && depth < 64 {
			var next uint32
			bits.Set(&next, int(tcc%32))
			s.trigger((tcc/32)*4, next, depth+1)
		}
	}
}

func (s *Simulator) raise(reg uint32, id uint32) {
	offset := reg
	if id >= 32 {
		offset += 4
	}
	word := s.words[offset]
	bits.Set(&word, int(id%32))
	s.words[offset] = word
}

// RaiseEvent latches a hardware event for a DMA channel in ER
func (s *Simulator) RaiseEvent(channel uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.raise(GlobalChannelBase+uint32(ER), channel)
}

// RaiseMissedEvent latches a missed event for a DMA channel in EMR
func (s *Simulator) RaiseMissedEvent(channel uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.raise(uint32(EMR), channel)
}

// RaiseMissedQdmaEvent latches a missed event for a QDMA channel in QEMR
func (s *Simulator) RaiseMissedQdmaEvent(channel uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.raise(QEMR, channel)
}

// RaiseCompletion latches a transfer completion for a TCC in IPR
func (s *Simulator) RaiseCompletion(tcc uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.raise(GlobalChannelBase+uint32(IPR), tcc)
}

// RaiseCCError latches bits in CCERR: queue thresholds in the low byte and CCERRTccErr
func (s *Simulator) RaiseCCError(mask uint32) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.set(CCERR, mask)
}

// SimulatedTC is an in-memory model of a transfer controller register block
type SimulatedTC struct {
	mutex sync.Mutex
	words map[uint32]uint32
}

func NewSimulatedTC() *SimulatedTC {
	return &SimulatedTC{words: make(map[uint32]uint32)}
}

func (t *SimulatedTC) Read32(offset uint32) uint32 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.words[offset]
}

func (t *SimulatedTC) Write32(offset uint32, value uint32) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if offset == ERRCLR {
		t.words[ERRSTAT] &^= value
		if t.words[ERRSTAT] == 0 {
			t.words[ERRDET] = 0
		}
		return
	}
	t.words[offset] = value
}

// RaiseError latches an error class bit in ERRSTAT if it is enabled in ERREN. detail is
// stored in ERRDET for bus errors.
func (t *SimulatedTC) RaiseError(pos int, detail uint32) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	enabled := t.words[ERREN]
	if bits.Get(&enabled, pos, 1) == 0 {
		return
	}
	word := t.words[ERRSTAT]
	bits.Set(&word, pos)
	t.words[ERRSTAT] = word
	if pos == TCErrBus {
		t.words[ERRDET] = detail
	}
}
