package resolver

import (
	"context"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	executor "github.com/hanpama/lighthouse/internal/executor"
)

// Property resolves a field by reading it off the parent value. The field's
// @rename(attribute:) names the attribute to read when present.
//
// Maps are read by key, falling back to the snake_case form of the key.
// Structs are read through the exported field whose json tag matches, or
// whose name matches the CamelCase form of the key ignoring case.
func Property(_ context.Context, source any, _ *arguments.ArgumentSet, info *executor.ResolveInfo) (any, error) {
	return property(source, attribute(info)), nil
}

func attribute(info *executor.ResolveInfo) string {
	if info.FieldDefinition != nil {
		if d := info.FieldDefinition.Directives.ForName(arguments.RenameDirective); d != nil {
			if a := d.Arguments.ForName("attribute"); a != nil && a.Value != nil && a.Value.Raw != "" {
				return a.Value.Raw
			}
		}
	}
	return info.FieldName
}

func property(source any, name string) any {
	switch m := source.(type) {
	case nil:
		return nil
	case map[string]any:
		if v, ok := m[name]; ok {
			return v
		}
		return m[strcase.ToSnake(name)]
	}

	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil
		}
		for _, key := range []string{name, strcase.ToSnake(name)} {
			if e := v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())); e.IsValid() {
				return e.Interface()
			}
		}
	case reflect.Struct:
		if i, ok := structField(v.Type(), name); ok {
			return v.Field(i).Interface()
		}
	}
	return nil
}

func structField(t reflect.Type, name string) (int, bool) {
	camel := strcase.ToCamel(name)
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == name {
			return i, true
		}
		if strings.EqualFold(f.Name, camel) {
			return i, true
		}
	}
	return 0, false
}
