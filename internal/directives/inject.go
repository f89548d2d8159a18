package directives

import (
	"context"
	"errors"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	executor "github.com/hanpama/lighthouse/internal/executor"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	language "github.com/hanpama/lighthouse/internal/language"
)

const InjectDirective = "inject"

var errNoContext = errors.New("no request context")

// Inject implements @inject(context: "user.id", name: "input.*.userId"). It
// copies a value of the request context into the arguments at a dot path.
// Missing context values are injected as null.
type Inject struct{}

func (Inject) ManipulateArgs(ctx context.Context, d *language.Directive, args *arguments.ArgumentSet, _ *executor.ResolveInfo) (*arguments.ArgumentSet, error) {
	from, err := stringArg(d, "context")
	if err != nil {
		return nil, err
	}
	to, err := stringArg(d, "name")
	if err != nil {
		return nil, err
	}
	gctx, ok := gqlcontext.FromContext(ctx)
	if !ok {
		return nil, errNoContext
	}
	value, ok := gctx.Lookup(from)
	if !ok {
		value = nil
	}
	return args.AddValue(to, value), nil
}
