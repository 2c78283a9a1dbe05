// Package nfa compiles regex pattern text into a Glushkov (positions and
// followpos) NFA without epsilon transitions.
//
// The parser is a four-level recursive descent (alternation,
// concatenation, quantified atom, atom). Each grammar level returns a
// Result value carrying firstpos, lastpos and nullability; followpos
// edges accumulate in the Program as parsing proceeds. Runs of plain
// literal text are diverted into a trie instead of positions; the DFA
// subset construction merges the two representations.
//
// Compilation is all-or-nothing: any syntax problem aborts with a
// ParseError carrying the error kind and the byte offset in the pattern.
package nfa

import "fmt"

// ErrorKind classifies pattern compilation errors.
type ErrorKind uint8

const (
	// ErrorMismatchedParens indicates an unbalanced ( or ).
	ErrorMismatchedParens ErrorKind = iota

	// ErrorMismatchedBraces indicates an unbalanced { or }.
	ErrorMismatchedBraces

	// ErrorMismatchedBrackets indicates an unbalanced [ or ].
	ErrorMismatchedBrackets

	// ErrorMismatchedQuotes indicates \Q without a closing \E.
	ErrorMismatchedQuotes

	// ErrorEmptyExpression indicates an empty pattern.
	ErrorEmptyExpression

	// ErrorEmptyClass indicates an empty [] character class.
	ErrorEmptyClass

	// ErrorInvalidClass indicates an unknown character class name.
	ErrorInvalidClass

	// ErrorInvalidClassRange indicates a class range with lo > hi, or a
	// range endpoint that is not a single character.
	ErrorInvalidClassRange

	// ErrorInvalidEscape indicates an unrecognized or malformed escape.
	ErrorInvalidEscape

	// ErrorInvalidAnchor indicates an anchor in an impossible position.
	ErrorInvalidAnchor

	// ErrorInvalidRepeat indicates a bounded repeat {n,m} with n > m.
	ErrorInvalidRepeat

	// ErrorInvalidQuantifier indicates a quantifier with nothing to
	// repeat, or a doubled quantifier.
	ErrorInvalidQuantifier

	// ErrorInvalidModifier indicates an unknown (?...) inline modifier.
	ErrorInvalidModifier

	// ErrorInvalidSyntax indicates a syntax error not covered by a more
	// specific kind.
	ErrorInvalidSyntax

	// ErrorUndefinedName indicates a {name} reference to an undefined
	// macro.
	ErrorUndefinedName

	// ErrorExceedsLength indicates the pattern needs more positions than
	// the 16-bit position encoding allows.
	ErrorExceedsLength

	// ErrorExceedsLimits indicates a complexity cap was hit: too many
	// alternatives, lazy groups, lookaheads or repetition unrolls.
	ErrorExceedsLimits
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorMismatchedParens:
		return "mismatched parentheses"
	case ErrorMismatchedBraces:
		return "mismatched braces"
	case ErrorMismatchedBrackets:
		return "mismatched brackets"
	case ErrorMismatchedQuotes:
		return "mismatched quotes"
	case ErrorEmptyExpression:
		return "empty expression"
	case ErrorEmptyClass:
		return "empty character class"
	case ErrorInvalidClass:
		return "invalid character class"
	case ErrorInvalidClassRange:
		return "invalid character class range"
	case ErrorInvalidEscape:
		return "invalid escape"
	case ErrorInvalidAnchor:
		return "invalid anchor"
	case ErrorInvalidRepeat:
		return "invalid repeat range"
	case ErrorInvalidQuantifier:
		return "invalid quantifier"
	case ErrorInvalidModifier:
		return "invalid modifier"
	case ErrorInvalidSyntax:
		return "invalid syntax"
	case ErrorUndefinedName:
		return "undefined macro name"
	case ErrorExceedsLength:
		return "pattern exceeds length limits"
	case ErrorExceedsLimits:
		return "pattern exceeds complexity limits"
	default:
		return fmt.Sprintf("unknown error kind (%d)", k)
	}
}

// ParseError is the error type for all pattern compilation failures.
// Pos is the byte offset in the pattern text where the problem was
// detected (for unterminated constructs, the offset of the opening
// delimiter).
type ParseError struct {
	Kind ErrorKind
	Pos  int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Kind, e.Pos)
}

// Is matches ParseErrors by kind, so callers can write
// errors.Is(err, &ParseError{Kind: ErrorInvalidRepeat}).
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
