/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package frontend contains everything needed to transform BraneScript
// source code into an Abstract Syntax Tree (AST). The AST-related types
// themselves are defined in the ast package.
//
// Highlights here are the scanner (lexer) and the parser.
package frontend
