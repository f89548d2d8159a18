package scalars

import (
	"fmt"
	"time"
)

var (
	// DateTime is "2006-01-02 15:04:05" in UTC.
	DateTime = &DateScalar{Format: time.DateTime, Lenient: "2006-1-2 15:4:5"}
	// Date is "2006-01-02".
	Date = &DateScalar{Format: time.DateOnly, Lenient: "2006-1-2"}
)

// DateScalar serializes time.Time values with a fixed layout. Input is
// parsed with Lenient so that unpadded values are accepted and canonicalised
// on output.
type DateScalar struct {
	Format  string
	Lenient string
}

func (d *DateScalar) Serialize(value any) (any, error) {
	t, err := d.toTime(value)
	if err != nil {
		return nil, err
	}
	return t.Format(d.Format), nil
}

func (d *DateScalar) ParseValue(value any) (any, error) {
	return d.toTime(value)
}

func (d *DateScalar) toTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot represent nil time")
		}
		return *v, nil
	case string:
		return d.parse(v)
	default:
		return time.Time{}, fmt.Errorf("cannot represent %v (%T)", value, value)
	}
}

func (d *DateScalar) parse(s string) (time.Time, error) {
	t, err := time.Parse(d.Format, s)
	if err == nil {
		return t, nil
	}
	if d.Lenient != "" {
		if t, lerr := time.Parse(d.Lenient, s); lerr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q does not match %q", s, d.Format)
}

// Canonicalize parses s and formats it with the canonical layout.
func (d *DateScalar) Canonicalize(s string) (string, error) {
	t, err := d.parse(s)
	if err != nil {
		return "", err
	}
	return t.Format(d.Format), nil
}
