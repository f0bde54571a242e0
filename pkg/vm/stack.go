/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package vm

import (
	"github.com/brane-lang/branescript/pkg/bytecode"
)

// Stack implements the VM's operand stack: a stack of bytecode.Values
// shared by every call frame's view. Grounded on a classic Stack design
// -- same size/top/push/pop/popN/peek/at/setAt/createView API.
// Serialize/DeserializeStack are dropped: persisting VM state across
// process restarts is an explicit non-goal here.
type Stack struct {
	data []bytecode.Value
}

// size returns the number of elements in the stack.
func (s *Stack) size() int {
	return len(s.data)
}

// top returns the value at the top of the stack, without popping it.
// Panics if the stack is empty.
func (s *Stack) top() bytecode.Value {
	return s.data[len(s.data)-1]
}

// push pushes a new value into the stack.
func (s *Stack) push(v bytecode.Value) {
	s.data = append(s.data, v)
}

// pop pops a value from the top of the stack and returns it. Panics on
// underflow.
func (s *Stack) pop() bytecode.Value {
	top := s.top()
	s.data = s.data[:len(s.data)-1]
	return top
}

// popN pops n values from the top of the stack and discards them.
func (s *Stack) popN(n int) {
	s.data = s.data[:len(s.data)-n]
}

// peek returns a value a given distance from the top, without changing the
// stack. Passing 0 means the value currently on top.
func (s *Stack) peek(distance int) bytecode.Value {
	return s.data[len(s.data)-1-distance]
}

// at returns the value at a given absolute index of the stack.
func (s *Stack) at(index int) bytecode.Value {
	return s.data[index]
}

// setAt sets the value at a given absolute index of the stack.
func (s *Stack) setAt(index int, value bytecode.Value) {
	s.data[index] = value
}

// truncateTo discards every value at or above the absolute index base.
// Used by OpReturn to collapse a callee's locals (and the callee value
// itself) back to the caller's stack depth before pushing the return
// value -- an earlier sample VM here never implemented real Return
// semantics (its run loop detected "end of program" as a temporary hack),
// so this has no direct counterpart there, only Stack's own popN
// generalized from "pop N from the top" to "pop down to an absolute base".
func (s *Stack) truncateTo(base int) {
	s.data = s.data[:base]
}

// createView creates a read-write view into the stack, so that the view
// looks like a new stack on top of the backing stack. Passing offset as 0
// means the view starts empty; passing 1 means the view starts with the
// one element that was on top of the backing stack (the callee itself, by
// BraneScript's calling convention -- see callFrame).
func (s *Stack) createView(offset int) *StackView {
	return &StackView{
		stack: s,
		base:  s.size() - offset,
	}
}

// StackView provides a read/write view into a Stack, offset at some
// arbitrary base within the backing stack -- the per-call-frame view every
// callFrame uses. Assumes it is always the topmost view on the backing
// stack.
type StackView struct {
	stack *Stack
	base  int
}

func (s *StackView) size() int            { return s.stack.size() - s.base }
func (s *StackView) top() bytecode.Value  { return s.stack.top() }
func (s *StackView) push(v bytecode.Value) { s.stack.push(v) }
func (s *StackView) pop() bytecode.Value  { return s.stack.pop() }

func (s *StackView) peek(distance int) bytecode.Value {
	return s.stack.peek(distance)
}

func (s *StackView) at(index int) bytecode.Value {
	return s.stack.at(s.base + index)
}

func (s *StackView) setAt(index int, value bytecode.Value) {
	s.stack.setAt(s.base+index, value)
}
