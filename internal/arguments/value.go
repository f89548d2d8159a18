package arguments

// Value is the value bound to an Argument. It is one of Scalar, List,
// *ArgumentSet or SetList.
type Value interface {
	isValue()
}

// Scalar holds a leaf value such as a string, number, bool, enum name or an
// explicit nil.
type Scalar struct {
	Value any
}

// List holds the items of a list that does not contain input objects.
type List []Value

// SetList holds the items of a list of input objects.
type SetList []*ArgumentSet

func (Scalar) isValue() {}
func (List) isValue() {}
func (SetList) isValue() {}
func (*ArgumentSet) isValue() {}

// ValueOf wraps a plain Go value. Values that already are a Value are
// returned as is, *ArgumentSet and []*ArgumentSet keep their structure, []any
// becomes a List and everything else a Scalar.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Scalar{}
	case Value:
		return x
	case []*ArgumentSet:
		return SetList(x)
	case []any:
		l := make(List, len(x))
		for i, item := range x {
			l[i] = ValueOf(item)
		}
		return l
	default:
		return Scalar{Value: v}
	}
}

// IsNull reports whether v represents a GraphQL null.
func IsNull(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case Scalar:
		return x.Value == nil
	case *ArgumentSet:
		return x == nil
	}
	return false
}

// Plain converts v into plain Go values: nested sets become map[string]any
// and lists become []any.
func Plain(v Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case Scalar:
		return x.Value
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Plain(item)
		}
		return out
	case *ArgumentSet:
		if x == nil {
			return nil
		}
		return x.ToArray()
	case SetList:
		out := make([]any, len(x))
		for i, set := range x {
			if set != nil {
				out[i] = set.ToArray()
			}
		}
		return out
	}
	return nil
}
