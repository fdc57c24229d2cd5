package shortcode

const (
	DefaultCustomMinLength = 3
	DefaultCustomMaxLength = 20
)

// CustomRules constrain user-chosen codes.
type CustomRules struct {
	MinLength int
	MaxLength int
}

func DefaultCustomRules() CustomRules {
	return CustomRules{MinLength: DefaultCustomMinLength, MaxLength: DefaultCustomMaxLength}
}

// Valid accepts letters, digits, '-' and '_' within the length bounds. The empty
// string is never valid.
func (r CustomRules) Valid(code string) bool {
	if code == "" {
		return false
	}
	lo, hi := r.MinLength, r.MaxLength
	if lo <= 0 {
		lo = DefaultCustomMinLength
	}
	if hi <= 0 {
		hi = DefaultCustomMaxLength
	}
	if len(code) < lo || len(code) > hi {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isCustomChar(code[i]) {
			return false
		}
	}
	return true
}

func isCustomChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
