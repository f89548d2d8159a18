package subscriptions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// value is the persisted form of one argument or variable value. K names the
// Go type the value had so that decoding restores it exactly; JSON alone
// would turn every number into float64.
type value struct {
	K string          `json:"k"`
	V json.RawMessage `json:"v,omitempty"`
}

const (
	kindNull    = "null"
	kindBool    = "bool"
	kindString  = "string"
	kindInt     = "int"
	kindInt32   = "int32"
	kindInt64   = "int64"
	kindUint    = "uint"
	kindUint32  = "uint32"
	kindUint64  = "uint64"
	kindFloat32 = "float32"
	kindFloat64 = "float64"
	kindTime    = "time"
	kindList    = "list"
	kindObject  = "object"
	// kindJSON holds values of other types as plain JSON. They come back as
	// the generic JSON types.
	kindJSON = "json"
)

func encodeValues(m map[string]any) (json.RawMessage, error) {
	if m == nil {
		return nil, nil
	}
	v, err := encodeValue(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func decodeValues(data json.RawMessage) (map[string]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var v value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	out, err := decodeValue(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.K)
	}
	return m, nil
}

func encodeValue(in any) (value, error) {
	var (
		kind string
		raw  string
	)
	switch x := in.(type) {
	case nil:
		return value{K: kindNull}, nil
	case bool:
		kind, raw = kindBool, strconv.FormatBool(x)
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return value{}, err
		}
		return value{K: kindString, V: b}, nil
	case int:
		kind, raw = kindInt, strconv.Itoa(x)
	case int32:
		kind, raw = kindInt32, strconv.FormatInt(int64(x), 10)
	case int64:
		kind, raw = kindInt64, strconv.FormatInt(x, 10)
	case uint:
		kind, raw = kindUint, strconv.FormatUint(uint64(x), 10)
	case uint32:
		kind, raw = kindUint32, strconv.FormatUint(uint64(x), 10)
	case uint64:
		kind, raw = kindUint64, strconv.FormatUint(x, 10)
	case float32:
		kind, raw = kindFloat32, strconv.Quote(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		// Quoted so NaN and infinities survive.
		kind, raw = kindFloat64, strconv.Quote(strconv.FormatFloat(x, 'g', -1, 64))
	case time.Time:
		kind, raw = kindTime, strconv.Quote(x.Format(time.RFC3339Nano))
	case []any:
		items := make([]value, len(x))
		for i, item := range x {
			v, err := encodeValue(item)
			if err != nil {
				return value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		b, err := json.Marshal(items)
		if err != nil {
			return value{}, err
		}
		return value{K: kindList, V: b}, nil
	case map[string]any:
		fields := make(map[string]value, len(x))
		for k, item := range x {
			v, err := encodeValue(item)
			if err != nil {
				return value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = v
		}
		b, err := json.Marshal(fields)
		if err != nil {
			return value{}, err
		}
		return value{K: kindObject, V: b}, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return value{}, fmt.Errorf("encode %T: %w", x, err)
		}
		return value{K: kindJSON, V: b}, nil
	}
	return value{K: kind, V: json.RawMessage(raw)}, nil
}

func decodeValue(v value) (any, error) {
	switch v.K {
	case kindNull:
		return nil, nil
	case kindBool:
		return strconv.ParseBool(string(v.V))
	case kindString:
		var s string
		err := json.Unmarshal(v.V, &s)
		return s, err
	case kindInt:
		n, err := strconv.ParseInt(string(v.V), 10, 0)
		return int(n), err
	case kindInt32:
		n, err := strconv.ParseInt(string(v.V), 10, 32)
		return int32(n), err
	case kindInt64:
		return strconv.ParseInt(string(v.V), 10, 64)
	case kindUint:
		n, err := strconv.ParseUint(string(v.V), 10, 0)
		return uint(n), err
	case kindUint32:
		n, err := strconv.ParseUint(string(v.V), 10, 32)
		return uint32(n), err
	case kindUint64:
		return strconv.ParseUint(string(v.V), 10, 64)
	case kindFloat32:
		s, err := strconv.Unquote(string(v.V))
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case kindFloat64:
		s, err := strconv.Unquote(string(v.V))
		if err != nil {
			return nil, err
		}
		return strconv.ParseFloat(s, 64)
	case kindTime:
		s, err := strconv.Unquote(string(v.V))
		if err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindList:
		var items []value
		if err := json.Unmarshal(v.V, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			x, err := decodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = x
		}
		return out, nil
	case kindObject:
		var fields map[string]value
		if err := json.Unmarshal(v.V, &fields); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(fields))
		for k, f := range fields {
			x, err := decodeValue(f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = x
		}
		return out, nil
	case kindJSON:
		var x any
		err := json.Unmarshal(v.V, &x)
		return x, err
	}
	return nil, fmt.Errorf("unknown value kind %q", v.K)
}
