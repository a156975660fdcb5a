package spans

import "fmt"

// ValidationError describes why one span cannot be trusted against its
// source text. It is reported, never silently corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "span validation: " + e.Reason
}

// Validate checks a span against the text its offsets refer to: start
// must not exceed end, both must be in bounds, and the literal excerpt
// must equal the text slice at those offsets. Offsets count characters,
// not bytes, so the text is sliced as runes.
func Validate(sp Span, text string) error {
	runes := []rune(text)
	if sp.StartChar < 0 || sp.EndChar < sp.StartChar {
		return &ValidationError{Reason: fmt.Sprintf(
			"offsets out of order: start=%d end=%d", sp.StartChar, sp.EndChar,
		)}
	}
	if sp.EndChar > len(runes) {
		return &ValidationError{Reason: fmt.Sprintf(
			"end offset %d beyond text length %d", sp.EndChar, len(runes),
		)}
	}
	if got := string(runes[sp.StartChar:sp.EndChar]); got != sp.Text {
		return &ValidationError{Reason: fmt.Sprintf(
			"excerpt mismatch at [%d:%d]: span text %q, source slice %q",
			sp.StartChar, sp.EndChar, sp.Text, got,
		)}
	}
	return nil
}
