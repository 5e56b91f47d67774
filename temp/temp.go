// Package temp implements the temperature value a thermostat is driven
// with: either a numeric setpoint or the special OFF state.
package temp

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalid is returned when a raw value cannot be converted to a
	// temperature.
	ErrInvalid = errors.New("invalid temperature")
	// ErrNotNumeric is returned when a numeric value is requested from OFF.
	ErrNotNumeric = errors.New("temperature is OFF, no numeric value")
)

// Temp holds either a numeric temperature or the OFF state. The zero
// value is 0 degrees; use Off for the OFF state.
type Temp struct {
	value float64
	off   bool
}

// Off is the temperature value that turns a thermostat off. OFF absorbs
// in addition and negation and sorts below every numeric temperature.
var Off = Temp{off: true}

// New returns a numeric temperature.
func New(v float64) Temp {
	return Temp{value: v}
}

// Parse converts a raw string to a temperature. All whitespace is
// stripped first; the token "OFF" (any case) yields Off, anything else
// must parse as a float.
func Parse(raw string) (Temp, error) {
	s := strings.Join(strings.Fields(raw), "")
	if strings.EqualFold(s, "OFF") {
		return Off, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Temp{}, errors.Wrapf(ErrInvalid, "%q", raw)
	}
	return Temp{value: v}, nil
}

// FromValue converts the loosely-typed values seen on config and report
// decoding (JSON numbers, strings, another Temp) to a temperature.
func FromValue(v interface{}) (Temp, error) {
	switch val := v.(type) {
	case Temp:
		return val, nil
	case string:
		return Parse(val)
	case float64:
		return Temp{value: val}, nil
	case float32:
		return Temp{value: float64(val)}, nil
	case int:
		return Temp{value: float64(val)}, nil
	case int64:
		return Temp{value: float64(val)}, nil
	case json.Number:
		return Parse(val.String())
	default:
		return Temp{}, errors.Wrapf(ErrInvalid, "%v", v)
	}
}

// IsOff tells whether this temperature means OFF.
func (t Temp) IsOff() bool {
	return t.off
}

// Float returns the numeric value. It fails for OFF.
func (t Temp) Float() (float64, error) {
	if t.off {
		return 0, ErrNotNumeric
	}
	return t.value, nil
}

// Add returns the sum of two temperatures. OFF absorbs: if either
// operand is OFF, the result is OFF.
func (t Temp) Add(o Temp) Temp {
	if t.off || o.off {
		return Off
	}
	return Temp{value: t.value + o.value}
}

// AddFloat adds a bare numeric offset, promoting it first.
func (t Temp) AddFloat(v float64) Temp {
	return t.Add(Temp{value: v})
}

// Neg returns the negated temperature. -OFF is OFF.
func (t Temp) Neg() Temp {
	if t.off {
		return Off
	}
	return Temp{value: -t.value}
}

// Sub subtracts o from t via addition of the negation.
func (t Temp) Sub(o Temp) Temp {
	return t.Add(o.Neg())
}

// Equal reports whether two temperatures are the same. OFF equals only
// OFF.
func (t Temp) Equal(o Temp) bool {
	if t.off || o.off {
		return t.off == o.off
	}
	return t.value == o.value
}

// Less imposes the total order used for min/max: OFF is strictly less
// than every numeric value, OFF is not less than OFF.
func (t Temp) Less(o Temp) bool {
	if !t.off && o.off {
		return false
	}
	if t.off && !o.off {
		return true
	}
	if t.off && o.off {
		return false
	}
	return t.value < o.value
}

// String serializes the temperature so that Parse can read it back:
// a decimal string for numerics, the literal "OFF" otherwise.
func (t Temp) String() string {
	if t.off {
		return "OFF"
	}
	return strconv.FormatFloat(t.value, 'f', -1, 64)
}

// MarshalJSON serializes the temperature as its string form.
func (t Temp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts both the string form and bare JSON numbers.
func (t *Temp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return errors.Wrapf(ErrInvalid, "%s", b)
		}
		t.value, t.off = f, false
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
