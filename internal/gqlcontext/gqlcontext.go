package gqlcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Context is the per-request GraphQL context handed to resolvers and
// directives, and persisted with subscribers.
type Context struct {
	User    map[string]any `json:"user,omitempty"`
	Headers http.Header    `json:"headers,omitempty"`
}

type key struct{}

// NewContext returns a copy of parent carrying gctx.
func NewContext(parent context.Context, gctx *Context) context.Context {
	return context.WithValue(parent, key{}, gctx)
}

// FromContext extracts the GraphQL context from ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	gctx, ok := ctx.Value(key{}).(*Context)
	return gctx, ok && gctx != nil
}

// Factory builds the GraphQL context of an HTTP request.
type Factory func(r *http.Request) *Context

// HeaderUser returns a Factory reading the user id from header. Requests
// without the header get an anonymous context.
func HeaderUser(header string) Factory {
	return func(r *http.Request) *Context {
		gctx := &Context{Headers: r.Header.Clone()}
		if id := r.Header.Get(header); id != "" && header != "" {
			gctx.User = map[string]any{"id": id}
		}
		return gctx
	}
}

// Lookup reads a dot separated path such as "user.id" out of the context.
// "user.*" paths follow gjson path syntax over the JSON form of User;
// "headers.<name>" reads a request header.
func (c *Context) Lookup(path string) (any, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "user":
		if c.User == nil {
			return nil, false
		}
		if rest == "" {
			return c.User, true
		}
		raw, err := json.Marshal(c.User)
		if err != nil {
			return nil, false
		}
		res := gjson.GetBytes(raw, rest)
		if !res.Exists() {
			return nil, false
		}
		return res.Value(), true
	case "headers":
		if rest == "" {
			return c.Headers, c.Headers != nil
		}
		v := c.Headers.Get(rest)
		return v, v != ""
	}
	return nil, false
}

// JSONSerializer persists *Context values as JSON.
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	gctx, ok := v.(*Context)
	if !ok {
		return nil, fmt.Errorf("gqlcontext: cannot serialize %T", v)
	}
	return json.Marshal(gctx)
}

func (JSONSerializer) Deserialize(data []byte) (any, error) {
	if string(data) == "null" {
		return nil, nil
	}
	var gctx Context
	if err := json.Unmarshal(data, &gctx); err != nil {
		return nil, fmt.Errorf("gqlcontext: %w", err)
	}
	return &gctx, nil
}
