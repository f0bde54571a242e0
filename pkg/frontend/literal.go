/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package frontend

import "strconv"

// parseInt64 and parseFloat64 convert validated integer/real lexemes (the
// scanner has already rejected anything strconv would choke on) into their
// Go numeric values for LiteralExpr construction.
func parseInt64(lexeme string) (int64, error) {
	return strconv.ParseInt(lexeme, 10, 64)
}

func parseFloat64(lexeme string) (float64, error) {
	return strconv.ParseFloat(lexeme, 64)
}
