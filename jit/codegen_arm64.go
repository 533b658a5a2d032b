//go:build arm64

package jit

import "encoding/binary"

// arm64 register numbers referenced below. R1/R2 are fixed by
// callasm_arm64.s's calling convention (argsPtr, argc); R3/R4 are
// scratch for binary operators; R31 in the Rd/Rn position of an
// immediate ADD/SUB means SP, per the architecture's alias rules.
const (
	regArgs  = 1
	regArgc  = 2
	regScrA  = 3
	regScrB  = 4
	regSP    = 31
	regZR    = 31
	regLHS   = 3
	regRHS   = 4
	resultR0 = 0
)

// codegenArch lowers Program to arm64 machine code. Like the amd64
// backend, pushes and pops are real stores/loads against SP, kept
// 16-byte aligned by always adjusting it in units of 16 even though each
// slot only holds 8 bytes (AAPCS64 requires SP stay quadword-aligned at
// any point it is used as a base register).
func codegenArch(prog Program) ([]byte, bool) {
	var words []uint32
	for _, inst := range prog {
		switch inst.Op {
		case OpConst:
			words = append(words, movImm64(regScrA, inst.Imm)...)
			words = append(words, pushReg(regScrA))

		case OpLoadArg:
			if inst.Imm < 0 || inst.Imm > 511 {
				return nil, false // 12-bit scaled immediate, *8
			}
			words = append(words, ldrImm(regScrA, regArgs, uint16(inst.Imm*8)))
			words = append(words, pushReg(regScrA))

		case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpLe, OpGt, OpGe, OpEq:
			words = append(words, popReg(regRHS))
			words = append(words, popReg(regLHS))
			w, ok := binOp(inst.Op)
			if !ok {
				return nil, false
			}
			words = append(words, w...)
			words = append(words, pushReg(regLHS))

		case OpRet:
			words = append(words, popReg(resultR0))
			words = append(words, 0xD65F03C0) // RET

		default:
			return nil, false
		}
	}
	return encodeWords(words), true
}

func encodeWords(words []uint32) []byte {
	code := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[i*4:], w)
	}
	return code
}

// movImm64 materializes a 64-bit immediate via MOVZ followed by three
// MOVK instructions, one per 16-bit lane. Always emitting all four keeps
// this simple at the cost of a few redundant instructions for small
// constants.
func movImm64(rd byte, imm int64) []uint32 {
	u := uint64(imm)
	movz := uint32(1<<31) | (0b10 << 29) | (0b100101 << 23) | (0 << 21) | (uint32(uint16(u)) << 5) | uint32(rd)
	out := []uint32{movz}
	for lane := 1; lane < 4; lane++ {
		shift := uint(lane * 16)
		imm16 := uint32(uint16(u >> shift))
		movk := uint32(1<<31) | (0b11 << 29) | (0b100101 << 23) | (uint32(lane) << 21) | (imm16 << 5) | uint32(rd)
		out = append(out, movk)
	}
	return out
}

// pushReg emits `SUB SP, SP, #16` then `STR Xt, [SP]`.
func pushReg(rt byte) []uint32 {
	return []uint32{
		subImm(regSP, regSP, 16),
		strImm(rt, regSP, 0),
	}
}

// popReg emits `LDR Xt, [SP]` then `ADD SP, SP, #16`.
func popReg(rt byte) []uint32 {
	return []uint32{
		ldrImm(rt, regSP, 0),
		addImm(regSP, regSP, 16),
	}
}

func addImm(rd, rn byte, imm uint16) uint32 {
	return 0x91000000 | (uint32(imm) << 10) | (uint32(rn) << 5) | uint32(rd)
}

func subImm(rd, rn byte, imm uint16) uint32 {
	return 0xD1000000 | (uint32(imm) << 10) | (uint32(rn) << 5) | uint32(rd)
}

// strImm/ldrImm encode the 64-bit unsigned-offset immediate forms;
// offset must be a multiple of 8 within a 12-bit scaled field.
func strImm(rt, rn byte, offset uint16) uint32 {
	return 0xF9000000 | (uint32(offset/8) << 10) | (uint32(rn) << 5) | uint32(rt)
}

func ldrImm(rt, rn byte, offset uint16) uint32 {
	return 0xF9400000 | (uint32(offset/8) << 10) | (uint32(rn) << 5) | uint32(rt)
}

func addReg(rd, rn, rm byte) uint32 {
	return 0x8B000000 | (uint32(rm) << 16) | (uint32(rn) << 5) | uint32(rd)
}

func subReg(rd, rn, rm byte) uint32 {
	return 0xCB000000 | (uint32(rm) << 16) | (uint32(rn) << 5) | uint32(rd)
}

func mulReg(rd, rn, rm byte) uint32 {
	return 0x9B007C00 | (uint32(rm) << 16) | (uint32(rn) << 5) | uint32(rd)
}

func sdivReg(rd, rn, rm byte) uint32 {
	return 0x9AC00C00 | (uint32(rm) << 16) | (uint32(rn) << 5) | uint32(rd)
}

func cmpReg(rn, rm byte) uint32 {
	return 0xEB000000 | (uint32(rm) << 16) | (uint32(rn) << 5) | uint32(regZR)
}

// csetReg implements `CSET Xd, cond` as the CSINC alias with both source
// operands XZR and the inverted condition.
func csetReg(rd byte, invCond uint32) uint32 {
	return 0x9A800400 | (uint32(regZR) << 16) | (invCond << 12) | (uint32(regZR) << 5) | uint32(rd)
}

const (
	condEQ = 0x0
	condGE = 0xA
	condLT = 0xB
	condGT = 0xC
	condLE = 0xD
	condNE = 0x1
)

func binOp(op Op) ([]uint32, bool) {
	switch op {
	case OpAdd:
		return []uint32{addReg(regLHS, regLHS, regRHS)}, true
	case OpSub:
		return []uint32{subReg(regLHS, regLHS, regRHS)}, true
	case OpMul:
		return []uint32{mulReg(regLHS, regLHS, regRHS)}, true
	case OpDiv:
		return []uint32{sdivReg(regLHS, regLHS, regRHS)}, true
	case OpLt:
		return []uint32{cmpReg(regLHS, regRHS), csetReg(regLHS, condGE)}, true
	case OpLe:
		return []uint32{cmpReg(regLHS, regRHS), csetReg(regLHS, condGT)}, true
	case OpGt:
		return []uint32{cmpReg(regLHS, regRHS), csetReg(regLHS, condLE)}, true
	case OpGe:
		return []uint32{cmpReg(regLHS, regRHS), csetReg(regLHS, condLT)}, true
	case OpEq:
		return []uint32{cmpReg(regLHS, regRHS), csetReg(regLHS, condNE)}, true
	default:
		return nil, false
	}
}
