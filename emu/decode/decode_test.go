package decode

import "testing"

func TestDecodeIType(t *testing.T) {
	// addi x1, x2, -1  (opcode OP-IMM, funct3 0, imm=0xFFF sign-extends to -1)
	word := uint32(0xFFF10093)
	in := Decode(word)
	if in.Op != OpOpImm {
		t.Fatalf("expected OpOpImm, got %#x", in.Op)
	}
	if in.Rd != 1 || in.Rs1 != 2 {
		t.Errorf("rd=%d rs1=%d, want rd=1 rs1=2", in.Rd, in.Rs1)
	}
	if in.Imm != -1 {
		t.Errorf("imm = %d, want -1", in.Imm)
	}
}

func TestDecodeBType(t *testing.T) {
	// beq x0, x0, -4 (a tight infinite loop, imm bits must reassemble to -4)
	word := uint32(0xFE000EE3)
	in := Decode(word)
	if in.Op != OpBranch {
		t.Fatalf("expected OpBranch, got %#x", in.Op)
	}
	if in.Imm != -4 {
		t.Errorf("imm = %d, want -4", in.Imm)
	}
}

func TestDecodeJType(t *testing.T) {
	// jal x0, 0 (jal with a zero immediate, a legal degenerate encoding)
	word := uint32(0x0000006F)
	in := Decode(word)
	if in.Op != OpJAL {
		t.Fatalf("expected OpJAL, got %#x", in.Op)
	}
	if in.Imm != 0 {
		t.Errorf("imm = %d, want 0", in.Imm)
	}
}

func TestDecodeSystemCSR(t *testing.T) {
	// csrrw x1, mstatus, x2 -> funct3=1, csr=0x300
	word := uint32(0)
	word |= uint32(OpSystem)
	word |= 1 << 7  // rd = x1
	word |= 1 << 12 // funct3 = csrrw
	word |= 2 << 15 // rs1 = x2
	word |= 0x300 << 20
	in := Decode(word)
	if in.CSR != 0x300 {
		t.Errorf("csr = %#x, want 0x300", in.CSR)
	}
	if in.Rd != 1 || in.Rs1 != 2 || in.Funct3 != 1 {
		t.Errorf("rd=%d rs1=%d funct3=%d, want 1/2/1", in.Rd, in.Rs1, in.Funct3)
	}
}

func TestIsCompressed(t *testing.T) {
	if IsCompressed(0x3) {
		t.Errorf("quadrant 11 should not be reported compressed")
	}
	if !IsCompressed(0x0) {
		t.Errorf("quadrant 00 should be reported compressed")
	}
}

func TestExpandCompressedAddi(t *testing.T) {
	// c.addi x5, 3: quadrant 01, funct3 000, rd/rs1 = x5, imm = 3.
	var h uint16
	h |= 1 // quadrant 01
	h |= 5 << 7
	h |= 3 << 2
	in := ExpandCompressed(h)
	if in.Op != OpOpImm {
		t.Fatalf("expected OpOpImm, got %#x", in.Op)
	}
	if in.Rd != 5 || in.Rs1 != 5 || in.Imm != 3 {
		t.Errorf("rd=%d rs1=%d imm=%d, want 5/5/3", in.Rd, in.Rs1, in.Imm)
	}
}

func TestExpandCompressedIllegalAddi4spn(t *testing.T) {
	var h uint16 // quadrant 00, funct3 000, all-zero nzuimm is reserved
	in := ExpandCompressed(h)
	if !in.Compressed || in.Op != 0 {
		t.Errorf("expected the illegal sentinel for a zero c.addi4spn, got %+v", in)
	}
}
