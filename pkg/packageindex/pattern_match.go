/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package packageindex

// Match finds the best FunctionDesc among funcs whose CallPattern matches
// the given sequence of keyword fragments (operand slots are assumed to
// fit wherever a pattern expects one; the caller -- the compiler's
// call-pattern resolution -- is responsible for
// lining up keyword and operand fragments positionally). Ambiguity policy:
// prefer the pattern spanning the most fragments; ties are broken by
// declaration order in funcs (lower index wins), which itself follows the
// package's Functions slice order -- deterministic given a deterministic
// index.
func Match(funcs []FunctionDesc, keywords []string, operandSlots int) (*FunctionDesc, bool) {
	var best *FunctionDesc
	bestFragments := -1

	for i := range funcs {
		fd := &funcs[i]
		if fd.Pattern == nil {
			continue
		}
		if !matchesPattern(fd.Pattern, keywords, operandSlots) {
			continue
		}
		fragments := fd.Pattern.FragmentCount()
		if fragments > bestFragments {
			best = fd
			bestFragments = fragments
		}
	}

	return best, best != nil
}

// matchesPattern reports whether pattern's keyword skeleton matches
// keywords exactly (in order) and pattern's operand-slot count (always 1,
// plus one more per infix fragment boundary used as an operand) is
// compatible with operandSlots.
func matchesPattern(pattern *CallPattern, keywords []string, operandSlots int) bool {
	var skeleton []string
	if pattern.Prefix != "" {
		skeleton = append(skeleton, pattern.Prefix)
	}
	skeleton = append(skeleton, pattern.Infix...)
	if pattern.Postfix != "" {
		skeleton = append(skeleton, pattern.Postfix)
	}

	if len(skeleton) != len(keywords) {
		return false
	}
	for i, kw := range skeleton {
		if kw != keywords[i] {
			return false
		}
	}

	wantOperands := 1 + len(pattern.Infix)
	return wantOperands == operandSlots
}
