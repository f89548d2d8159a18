package resolver

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/spf13/cast"

	schema "github.com/hanpama/lighthouse/internal/schema"
)

// SerializeLeafValue coerces a resolved scalar or enum value into its
// response form. Custom scalars go through the scalar registry; unknown
// scalars pass through unchanged.
func (r *Runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	if r.scalars != nil {
		if out, ok, err := r.scalars.Serialize(typeName, value); ok {
			return out, err
		}
	}
	switch typeName {
	case "String":
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("String cannot represent %v (%T)", value, value)
		}
		return s, nil
	case "ID":
		switch value.(type) {
		case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return cast.ToString(value), nil
		}
		return nil, fmt.Errorf("ID cannot represent %v (%T)", value, value)
	case "Boolean":
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
		}
		return b, nil
	case "Int":
		return serializeInt(value)
	case "Float":
		if _, ok := value.(bool); ok {
			return nil, fmt.Errorf("Float cannot represent a non numeric value: %v", value)
		}
		f, err := cast.ToFloat64E(value)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("Float cannot represent a non numeric value: %v", value)
		}
		return f, nil
	}
	if t := r.schema.Types[typeName]; t != nil && t.Kind == schema.TypeKindEnum {
		return serializeEnum(t, value)
	}
	return value, nil
}

func serializeInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case float32, float64:
		f := cast.ToFloat64(v)
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
		}
		n = int64(f)
	case bool, string:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	default:
		var err error
		if n, err = cast.ToInt64E(value); err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
		}
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", value)
	}
	return int(n), nil
}

func serializeEnum(t *schema.Type, value any) (any, error) {
	name, err := cast.ToStringE(value)
	if err == nil && slices.ContainsFunc(t.EnumValues, func(v *schema.EnumValue) bool { return v.Name == name }) {
		return name, nil
	}
	return nil, fmt.Errorf("Enum %q cannot represent value: %v", t.Name, value)
}
