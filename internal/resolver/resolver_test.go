package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/lighthouse/internal/language"
	scalars "github.com/hanpama/lighthouse/internal/scalars"
	schema "github.com/hanpama/lighthouse/internal/schema"
)

type profile struct {
	ID       string
	FullName string `json:"full_name,omitempty"`
	AuthorID string `json:"authorId"`
	secret   string
}

func TestProperty(t *testing.T) {
	p := &profile{ID: "1", FullName: "Ann", AuthorID: "9", secret: "x"}
	tests := []struct {
		name   string
		source any
		key    string
		want   any
	}{
		{"map key", map[string]any{"userId": 1}, "userId", 1},
		{"map snake fallback", map[string]any{"user_id": 2}, "userId", 2},
		{"map missing", map[string]any{}, "userId", nil},
		{"typed map", map[string]string{"title": "t"}, "title", "t"},
		{"struct name", p, "id", "1"},
		{"struct json tag", p, "full_name", "Ann"},
		{"struct camel name", p, "fullName", "Ann"},
		{"struct tag over name", *p, "authorId", "9"},
		{"unexported field", p, "secret", nil},
		{"nil pointer", (*profile)(nil), "id", nil},
		{"nil", nil, "id", nil},
		{"scalar source", 42, "id", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, property(tt.source, tt.key))
		})
	}
}

func TestSerializeLeafValue(t *testing.T) {
	s, err := schema.BuildFromSDL(&language.Source{Name: "leaf.graphql", Input: `
		scalar DateTime
		scalar JSON
		enum Role { ADMIN MEMBER }
		type Query { role: Role }
	`})
	require.NoError(t, err)
	rt := NewRuntime(s, NewRegistry(schema.RootNamespaces{}), WithScalars(scalars.NewRegistry()))

	tests := []struct {
		typ     string
		in      any
		want    any
		wantErr string
	}{
		{typ: "String", in: "a", want: "a"},
		{typ: "String", in: 12, want: "12"},
		{typ: "String", in: true, want: "true"},
		{typ: "String", in: struct{}{}, wantErr: "String cannot represent {} (struct {})"},
		{typ: "ID", in: int64(7), want: "7"},
		{typ: "ID", in: "x", want: "x"},
		{typ: "ID", in: 1.5, wantErr: "ID cannot represent 1.5 (float64)"},
		{typ: "Boolean", in: false, want: false},
		{typ: "Boolean", in: "true", wantErr: "Boolean cannot represent a non boolean value: true"},
		{typ: "Int", in: int32(3), want: 3},
		{typ: "Int", in: 3.0, want: 3},
		{typ: "Int", in: 3.5, wantErr: "Int cannot represent non-integer value: 3.5"},
		{typ: "Int", in: "3", wantErr: "Int cannot represent non-integer value: 3"},
		{typ: "Int", in: int64(1) << 40, wantErr: "Int cannot represent non 32-bit signed integer value: 1099511627776"},
		{typ: "Float", in: 2, want: 2.0},
		{typ: "Float", in: false, wantErr: "Float cannot represent a non numeric value: false"},
		{typ: "Role", in: "ADMIN", want: "ADMIN"},
		{typ: "Role", in: "OWNER", wantErr: `Enum "Role" cannot represent value: OWNER`},
		{typ: "DateTime", in: time.Date(2020, 4, 20, 23, 51, 15, 0, time.UTC), want: "2020-04-20 23:51:15"},
		{typ: "DateTime", in: "2020-4-20 23:51:15", want: "2020-04-20 23:51:15"},
		{typ: "JSON", in: map[string]any{"a": 1}, want: map[string]any{"a": 1}},
	}
	for _, tt := range tests {
		got, err := rt.SerializeLeafValue(context.Background(), tt.typ, tt.in)
		if tt.wantErr != "" {
			require.EqualError(t, err, tt.wantErr, "%s(%v)", tt.typ, tt.in)
			continue
		}
		require.NoError(t, err, "%s(%v)", tt.typ, tt.in)
		require.Equal(t, tt.want, got, "%s(%v)", tt.typ, tt.in)
	}
}
