/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package bytecode

import "encoding/binary"

// A Chunk is a chunk of bytecode, paired with nothing of its own -- the
// constant pool is shared across all chunks of a CompiledProgram. There is
// one Chunk per compiled BraneScript function.
type Chunk struct {
	// Code is the bytecode itself: opcodes interleaved with their
	// immediate operands.
	Code []byte
}

// EncodeUInt16 encodes v into the first two bytes of bytecode, big-endian,
// as jump offsets require ("Jump offsets are big-endian
// 16-bit").
func EncodeUInt16(bytecode []byte, v uint16) {
	binary.BigEndian.PutUint16(bytecode, v)
}

// DecodeUInt16 decodes the first two bytes of bytecode as a big-endian
// uint16.
func DecodeUInt16(bytecode []byte) uint16 {
	return binary.BigEndian.Uint16(bytecode)
}

// EncodeUInt32 encodes v into the first four bytes of bytecode, big-endian.
// The instruction encoding itself has no 4-byte operands: constant-pool and
// chunk indices are 2-byte (see OperandConstant).
func EncodeUInt32(bytecode []byte, v uint32) {
	binary.BigEndian.PutUint32(bytecode, v)
}

// DecodeUInt32 decodes the first four bytes of bytecode as a big-endian
// uint32.
func DecodeUInt32(bytecode []byte) uint32 {
	return binary.BigEndian.Uint32(bytecode)
}
