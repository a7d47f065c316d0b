/*
 * shiresim - Instruction fetch/decode: RV64 base + Zicsr encoding (§4.2).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's emu/cpu instruction-field
 * extraction (cpuState.execute pulls opcode/R1/R2/address fields out of a
 * raw instruction word before a giant opcode switch runs it) generalized
 * from S/370's variable-length RR/RX/RS/SS encoding to RISC-V's fixed
 * 32-bit R/I/S/B/U/J formats (plus the 16-bit compressed quadrants).
 */
package decode

// Opcode is the 7-bit major opcode field (inst[6:0]).
type Opcode uint32

const (
	OpLoad     Opcode = 0x03
	OpLoadFP   Opcode = 0x07
	OpMiscMem  Opcode = 0x0F
	OpOpImm    Opcode = 0x13
	OpAUIPC    Opcode = 0x17
	OpOpImm32  Opcode = 0x1B
	OpStore    Opcode = 0x23
	OpStoreFP  Opcode = 0x27
	OpAMO      Opcode = 0x2F
	OpOp       Opcode = 0x33
	OpLUI      Opcode = 0x37
	OpOp32     Opcode = 0x3B
	OpMAdd     Opcode = 0x43
	OpMSub     Opcode = 0x47
	OpNMSub    Opcode = 0x4B
	OpNMAdd    Opcode = 0x4F
	OpOpFP     Opcode = 0x53
	OpBranch   Opcode = 0x63
	OpJALR     Opcode = 0x67
	OpJAL      Opcode = 0x6F
	OpSystem   Opcode = 0x73
)

// Inst is one decoded RV64 instruction. Not every field is meaningful for
// every opcode; Decode fills in only the fields that opcode's format uses.
type Inst struct {
	Raw    uint32
	Op     Opcode
	Funct3 uint32
	Funct7 uint32
	Rd     int
	Rs1    int
	Rs2    int
	Rs3    int // R4-type (fused multiply-add).
	Imm    int64
	CSR    uint32 // System opcode's 12-bit CSR field.
	Compressed bool
	Size       int // 2 (compressed) or 4.
}

func signExtend(v uint32, bits int) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// Decode decodes one 32-bit instruction word. Compressed (16-bit, quadrant
// != 11) words are expanded by ExpandCompressed before reaching here.
func Decode(word uint32) Inst {
	in := Inst{Raw: word, Size: 4}
	in.Op = Opcode(word & 0x7F)
	in.Rd = int((word >> 7) & 0x1F)
	in.Funct3 = (word >> 12) & 0x7
	in.Rs1 = int((word >> 15) & 0x1F)
	in.Rs2 = int((word >> 20) & 0x1F)
	in.Funct7 = (word >> 25) & 0x7F

	switch in.Op {
	case OpLoad, OpLoadFP, OpOpImm, OpOpImm32, OpJALR:
		in.Imm = signExtend(word>>20, 12)
	case OpStore, OpStoreFP:
		lo := (word >> 7) & 0x1F
		hi := (word >> 25) & 0x7F
		in.Imm = signExtend((hi<<5)|lo, 12)
	case OpBranch:
		b0 := (word >> 8) & 0xF
		b1 := (word >> 25) & 0x3F
		b2 := (word >> 7) & 0x1
		b3 := (word >> 31) & 0x1
		in.Imm = signExtend((b3<<12)|(b2<<11)|(b1<<5)|(b0<<1), 13)
	case OpLUI, OpAUIPC:
		in.Imm = int64(int32(word & 0xFFFFF000))
	case OpJAL:
		b0 := (word >> 21) & 0x3FF
		b1 := (word >> 20) & 0x1
		b2 := (word >> 12) & 0xFF
		b3 := (word >> 31) & 0x1
		in.Imm = signExtend((b3<<20)|(b2<<12)|(b1<<11)|(b0<<1), 21)
	case OpSystem:
		in.CSR = word >> 20
		in.Imm = int64(in.Rs1) // csrrwi/csrrsi/csrrci carry a 5-bit immediate in rs1's field.
	case OpAMO:
		in.Funct7 = (word >> 27) & 0x1F // amo funct5, aq/rl live in bits 26:25.
	case OpMAdd, OpMSub, OpNMSub, OpNMAdd:
		in.Rs3 = int((word >> 27) & 0x1F)
		in.Funct7 = (word >> 25) & 0x3 // fmt field, 2 bits here.
	}
	return in
}

// ExpandCompressed widens a 16-bit RVC word into the equivalent 32-bit RV64
// instruction per the standard C-extension mapping; only the handful of
// forms this chip's boot/runtime code actually emits are covered (c.addi,
// c.addiw, c.li, c.mv, c.add, c.addi4spn, c.slli, c.ld/c.sd, c.ldsp/c.sdsp,
// c.beqz/c.bnez, c.j, c.jr/c.jalr). Anything
// else decodes to an illegal-instruction sentinel (opcode 0, all zero is
// not a legal RV64 word).
func ExpandCompressed(half uint16) Inst {
	quadrant := half & 0x3
	funct3 := (half >> 13) & 0x7
	rd := int((half >> 7) & 0x1F)
	rs2 := int((half >> 2) & 0x1F)
	rdPrime := int((half>>7)&0x7) + 8
	rs2Prime := int((half>>2)&0x7) + 8

	illegal := Inst{Size: 2, Compressed: true}

	switch quadrant {
	case 0x0:
		if funct3 == 0x0 { // c.addi4spn
			nzuimm := ((half >> 7) & 0x30) | ((half >> 1) & 0x3C0) | ((half >> 4) & 0x4) | ((half >> 2) & 0x8)
			if nzuimm == 0 {
				return illegal
			}
			return compressedToOpImm(2, rdPrime, int64(nzuimm))
		}
		if funct3 == 0x3 { // c.ld
			offset := ((half >> 7) & 0x38) | ((half << 1) & 0xC0)
			return compressedLoad(rdPrime, rs2Prime, int64(offset))
		}
		if funct3 == 0x7 { // c.sd
			offset := ((half >> 7) & 0x38) | ((half << 1) & 0xC0)
			return compressedStore(rdPrime, rs2Prime, int64(offset))
		}
	case 0x1:
		switch funct3 {
		case 0x0: // c.addi / c.nop
			imm := signExtend(uint32(((half>>7)&0x20)|((half>>2)&0x1F)), 6)
			return compressedToOpImm(rd, rd, imm)
		case 0x1: // c.addiw
			imm := signExtend(uint32(((half>>7)&0x20)|((half>>2)&0x1F)), 6)
			return compressedToOpImm32(rd, rd, imm)
		case 0x2: // c.li
			imm := signExtend(uint32(((half>>7)&0x20)|((half>>2)&0x1F)), 6)
			return compressedToOpImm(rd, 0, imm)
		case 0x5: // c.j
			imm := expandCJImm(half)
			return compressedJAL(0, imm)
		case 0x6: // c.beqz
			imm := expandCBImm(half)
			return compressedBranch(0, rdPrime, 0, imm)
		case 0x7: // c.bnez
			imm := expandCBImm(half)
			return compressedBranch(1, rdPrime, 0, imm)
		}
	case 0x2:
		switch funct3 {
		case 0x0: // c.slli
			shamt := ((half >> 7) & 0x20) | ((half >> 2) & 0x1F)
			return compressedShift(rd, rd, int64(shamt))
		case 0x3: // c.ldsp
			offset := ((half >> 7) & 0x20) | ((half << 4) & 0x1C0) | ((half >> 2) & 0x18)
			return compressedLoad(rd, 2, int64(offset))
		case 0x4:
			if rs2 == 0 {
				if half&0x1000 == 0 { // c.jr
					return compressedJALR(0, rd, 0)
				}
				return compressedJALR(1, rd, 0) // c.jalr
			}
			if half&0x1000 == 0 { // c.mv
				return compressedToOpImm(rd, rs2, 0)
			}
			return compressedAdd(rd, rd, rs2) // c.add
		case 0x7: // c.sdsp
			offset := ((half >> 7) & 0x38) | ((half >> 1) & 0x1C0)
			return compressedStore(2, rs2, int64(offset))
		}
	}
	return illegal
}

func expandCJImm(half uint16) int64 {
	b := uint32(half)
	v := ((b >> 1) & 0x800) | ((b << 2) & 0x400) | ((b >> 1) & 0x300) |
		((b << 1) & 0x80) | ((b >> 1) & 0x40) | ((b << 3) & 0x20) |
		((b >> 7) & 0x10) | ((b >> 2) & 0xE)
	return signExtend(v, 12)
}

func expandCBImm(half uint16) int64 {
	b := uint32(half)
	v := ((b >> 4) & 0x100) | ((b << 1) & 0xC0) | ((b << 3) & 0x20) | ((b >> 7) & 0x18) | ((b >> 2) & 0x6)
	return signExtend(v, 9)
}

func compressedToOpImm(rd, rs1 int, imm int64) Inst {
	return Inst{Op: OpOpImm, Funct3: 0, Rd: rd, Rs1: rs1, Imm: imm, Size: 2, Compressed: true}
}

func compressedToOpImm32(rd, rs1 int, imm int64) Inst {
	return Inst{Op: OpOpImm32, Funct3: 0, Rd: rd, Rs1: rs1, Imm: imm, Size: 2, Compressed: true}
}

func compressedShift(rd, rs1 int, shamt int64) Inst {
	return Inst{Op: OpOpImm, Funct3: 1, Rd: rd, Rs1: rs1, Imm: shamt, Size: 2, Compressed: true}
}

func compressedAdd(rd, rs1, rs2 int) Inst {
	return Inst{Op: OpOp, Funct3: 0, Funct7: 0, Rd: rd, Rs1: rs1, Rs2: rs2, Size: 2, Compressed: true}
}

func compressedLoad(rd, rs1 int, offset int64) Inst {
	return Inst{Op: OpLoad, Funct3: 3, Rd: rd, Rs1: rs1, Imm: offset, Size: 2, Compressed: true}
}

func compressedStore(rs1, rs2 int, offset int64) Inst {
	return Inst{Op: OpStore, Funct3: 3, Rs1: rs1, Rs2: rs2, Imm: offset, Size: 2, Compressed: true}
}

func compressedBranch(funct3 uint32, rs1, rs2 int, imm int64) Inst {
	return Inst{Op: OpBranch, Funct3: funct3, Rs1: rs1, Rs2: rs2, Imm: imm, Size: 2, Compressed: true}
}

func compressedJAL(rd int, imm int64) Inst {
	return Inst{Op: OpJAL, Rd: rd, Imm: imm, Size: 2, Compressed: true}
}

func compressedJALR(rd, rs1 int, imm int64) Inst {
	return Inst{Op: OpJALR, Funct3: 0, Rd: rd, Rs1: rs1, Imm: imm, Size: 2, Compressed: true}
}

// IsCompressed reports whether the low 2 bits of a fetched halfword mark it
// as a 16-bit RVC instruction (quadrants 00/01/10) rather than the low
// halfword of a 32-bit instruction (quadrant 11).
func IsCompressed(low16 uint16) bool { return low16&0x3 != 3 }
