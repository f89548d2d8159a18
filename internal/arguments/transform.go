package arguments

// Directive names understood by Spread and Rename.
const (
	SpreadDirective = "spread"
	RenameDirective = "rename"
)

// Spread returns a copy of s in which every argument marked with @spread that
// holds a nested set is replaced by that set's arguments. Nested sets and set
// lists are spread recursively.
func (s *ArgumentSet) Spread() *ArgumentSet {
	if s == nil {
		return nil
	}
	out := &ArgumentSet{Directives: s.Directives}
	for name, arg := range s.Arguments.All() {
		value := spreadValue(arg.Value)
		if nested, ok := value.(*ArgumentSet); ok && nested != nil && arg.Directives.ForName(SpreadDirective) != nil {
			for k, a := range nested.Arguments.All() {
				out.Set(k, a)
			}
			continue
		}
		out.Set(name, &Argument{Value: value, Type: arg.Type, Directives: arg.Directives})
	}
	for name, arg := range s.Undefined.All() {
		if _, ok := out.Arguments.Get(name); !ok {
			out.Undefined.Set(name, arg)
		}
	}
	return out
}

func spreadValue(v Value) Value {
	switch x := v.(type) {
	case *ArgumentSet:
		return x.Spread()
	case SetList:
		out := make(SetList, len(x))
		for i, set := range x {
			out[i] = set.Spread()
		}
		return out
	}
	return v
}

// Rename returns a copy of s in which every argument marked with
// @rename(attribute: "x") is stored under "x". Nested sets and set lists are
// renamed recursively.
func (s *ArgumentSet) Rename() *ArgumentSet {
	if s == nil {
		return nil
	}
	out := &ArgumentSet{Directives: s.Directives}
	for name, arg := range s.Arguments.All() {
		out.Set(renamedKey(name, arg), &Argument{Value: renameValue(arg.Value), Type: arg.Type, Directives: arg.Directives})
	}
	for name, arg := range s.Undefined.All() {
		key := renamedKey(name, arg)
		if _, ok := out.Arguments.Get(key); !ok {
			out.Undefined.Set(key, arg)
		}
	}
	return out
}

func renamedKey(name string, arg *Argument) string {
	d := arg.Directives.ForName(RenameDirective)
	if d == nil {
		return name
	}
	if a := d.Arguments.ForName("attribute"); a != nil && a.Value != nil && a.Value.Raw != "" {
		return a.Value.Raw
	}
	return name
}

func renameValue(v Value) Value {
	switch x := v.(type) {
	case *ArgumentSet:
		return x.Rename()
	case SetList:
		out := make(SetList, len(x))
		for i, set := range x {
			out[i] = set.Rename()
		}
		return out
	}
	return v
}
