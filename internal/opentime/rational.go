package opentime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Rational is an exact fraction with a positive denominator. The zero value
// is not a valid rate; use NewRational so values arrive reduced.
type Rational struct {
	Num int64
	Den int64
}

// NewRational returns num/den reduced to lowest terms with the sign carried
// on the numerator. A zero denominator yields the zero Rational.
func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g > 1 {
		num /= g
		den /= g
	}
	return Rational{Num: num, Den: den}
}

// FromInt returns n/1.
func FromInt(n int64) Rational {
	return Rational{Num: n, Den: 1}
}

// IsZero reports whether the rational has no value, including the invalid
// zero-denominator form.
func (r Rational) IsZero() bool {
	return r.Num == 0 || r.Den == 0
}

// Mul returns r*o reduced.
func (r Rational) Mul(o Rational) Rational {
	return NewRational(r.Num*o.Num, r.Den*o.Den)
}

// Div returns r/o reduced. Dividing by a zero rational yields the zero value.
func (r Rational) Div(o Rational) Rational {
	if o.Num == 0 {
		return Rational{}
	}
	return NewRational(r.Num*o.Den, r.Den*o.Num)
}

// Add returns r+o reduced.
func (r Rational) Add(o Rational) Rational {
	return NewRational(r.Num*o.Den+o.Num*r.Den, r.Den*o.Den)
}

// Sub returns r-o reduced.
func (r Rational) Sub(o Rational) Rational {
	return NewRational(r.Num*o.Den-o.Num*r.Den, r.Den*o.Den)
}

// Inv returns the reciprocal.
func (r Rational) Inv() Rational {
	return NewRational(r.Den, r.Num)
}

// Cmp compares r against o, returning -1, 0, or 1.
func (r Rational) Cmp(o Rational) int {
	lhs := r.Num * o.Den
	rhs := o.Num * r.Den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Equal reports exact equality of the reduced forms.
func (r Rational) Equal(o Rational) bool {
	return NewRational(r.Num, r.Den) == NewRational(o.Num, o.Den)
}

// Float converts to float64 for display purposes only.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String renders "24" for integral rationals and "30000/1001" otherwise.
func (r Rational) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational accepts the String forms: "24" or "30000/1001".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, fmt.Errorf("parse rational: empty input")
	}
	num, den := s, ""
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		num, den = s[:idx], s[idx+1:]
	}
	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
	}
	d := int64(1)
	if den != "" {
		d, err = strconv.ParseInt(den, 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
	}
	if d == 0 {
		return Rational{}, fmt.Errorf("parse rational %q: zero denominator", s)
	}
	return NewRational(n, d), nil
}

// MarshalJSON encodes the rational in its String form.
func (r Rational) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the String form.
func (r *Rational) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRational(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CommonRate picks a rate both operands rescale to without precision loss:
// lcm(numerators)/gcd(denominators). When that grid cannot be formed the
// fallback is returned with ok=false so callers can surface a rate warning.
func CommonRate(a, b, fallback Rational) (Rational, bool) {
	if a.IsZero() || b.IsZero() {
		return fallback, false
	}
	if a.Equal(b) {
		return NewRational(a.Num, a.Den), true
	}
	num := lcm(a.Num, b.Num)
	if num == 0 {
		return fallback, false
	}
	den := gcd(a.Den, b.Den)
	return NewRational(num, den), true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	return abs(a) / gcd(abs(a), abs(b)) * abs(b)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
