package schema

import (
	"errors"
	"fmt"
)

// Root operation type names.
const (
	RootQuery        = "Query"
	RootMutation     = "Mutation"
	RootSubscription = "Subscription"
)

// ErrRootTypeNotFound is returned when a name is not one of the root
// operation type names.
var ErrRootTypeNotFound = errors.New("root type not found")

// RootNamespaces holds the configured resolver namespaces of each root type.
// A namespace is the lookup key under which resolvers of that root type's
// fields are registered.
type RootNamespaces struct {
	Queries       []string
	Mutations     []string
	Subscriptions []string
}

// IsRootType reports whether typeName names one of the root operation types.
func IsRootType(typeName string) bool {
	switch typeName {
	case RootQuery, RootMutation, RootSubscription:
		return true
	}
	return false
}

// GetName returns the primary namespace configured for a root type.
func (n RootNamespaces) GetName(typeName string) (string, error) {
	if !IsRootType(typeName) {
		return "", fmt.Errorf("%w: %q", ErrRootTypeNotFound, typeName)
	}
	if ns := n.DefaultNamespaces(typeName); len(ns) > 0 {
		return ns[0], nil
	}
	return "", nil
}

// DefaultNamespaces returns every namespace configured for a root type, in
// lookup order. Unknown type names yield an empty slice.
func (n RootNamespaces) DefaultNamespaces(typeName string) []string {
	var ns []string
	switch typeName {
	case RootQuery:
		ns = n.Queries
	case RootMutation:
		ns = n.Mutations
	case RootSubscription:
		ns = n.Subscriptions
	}
	return append([]string{}, ns...)
}
