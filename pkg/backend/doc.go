/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package backend compiles a BraneScript AST into a bytecode.CompiledProgram:
// a declaration-registration pass that creates a Chunk (and, for functions
// and classes, a heap object) for every declaration, followed by a
// code-generation pass that actually fills those Chunks with bytecode.
package backend
