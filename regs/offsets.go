package regs

// Pair is the offset of the low word of a register pair that holds one bit per DMA channel.
// Channels 0-31 live in the low word and 32-63 in the word that follows it.
type Pair uint32

// Channel registers, relative to the global channel block or a shadow region block
const (
	ER   Pair = 0x00
	ECR  Pair = 0x08
	ESR  Pair = 0x10
	CER  Pair = 0x18
	EER  Pair = 0x20
	EECR Pair = 0x28
	EESR Pair = 0x30
	SER  Pair = 0x38
	SECR Pair = 0x40
	IER  Pair = 0x50
	IECR Pair = 0x58
	IESR Pair = 0x60
	IPR  Pair = 0x68
	ICR  Pair = 0x70

	IEVAL uint32 = 0x78
	QER   uint32 = 0x80
	QEER  uint32 = 0x84
	QEECR uint32 = 0x88
	QEESR uint32 = 0x8C
	QSER  uint32 = 0x90
	QSECR uint32 = 0x94
)

// Absolute channel controller offsets
const (
	PID   uint32 = 0x0000
	CCCFG uint32 = 0x0004

	DCHMAP   uint32 = 0x0100
	QCHMAP   uint32 = 0x0200
	DMAQNUM  uint32 = 0x0240
	QDMAQNUM uint32 = 0x0260
	QUETCMAP uint32 = 0x0280
	QUEPRI   uint32 = 0x0284

	EMR      Pair   = 0x0300
	EMCR     Pair   = 0x0308
	QEMR     uint32 = 0x0310
	QEMCR    uint32 = 0x0314
	CCERR    uint32 = 0x0318
	CCERRCLR uint32 = 0x031C
	EEVAL    uint32 = 0x0320

	DRAE uint32 = 0x0340
	QRAE uint32 = 0x0380

	// QWMTHRA holds the watermark levels of queues 0-3, one byte each
	QWMTHRA uint32 = 0x0620

	GlobalChannelBase uint32 = 0x1000
	ShadowRegionBase  uint32 = 0x2000
	ShadowRegionSize  uint32 = 0x0200

	ParamBase uint32 = 0x4000
	// ParamSize is the size of one PaRAM set in bytes
	ParamSize uint32 = 0x20
	// ParamWords is the number of 32-bit words in one PaRAM set
	ParamWords int = 8
)

const (
	// CCERRTccErr is the TCC overflow bit of CCERR and CCERRCLR; bits below it are per-queue
	// threshold-exceeded flags
	CCERRTccErr uint32 = 1 << 16
)

// Transfer controller offsets
const (
	TCPID   uint32 = 0x000
	TCCFG   uint32 = 0x004
	TCSTAT  uint32 = 0x100
	ERRSTAT uint32 = 0x120
	ERREN   uint32 = 0x124
	ERRCLR  uint32 = 0x128
	ERRDET  uint32 = 0x12C
	ERRCMD  uint32 = 0x130
	RDRATE  uint32 = 0x140
)

// Bit positions within ERRSTAT, ERREN and ERRCLR
const (
	TCErrBus     = 0
	TCErrTR      = 2
	TCErrMMRAddr = 3

	// ERRDETStatMask selects the bus error status code within ERRDET
	ERRDETStatMask = 0xF
)

// CCSize is the span of the channel controller register block, PaRAM included, for 512 sets
const CCSize = ParamBase + 512*ParamSize

// TCSize is the span of one transfer controller register block
const TCSize = 0x400
