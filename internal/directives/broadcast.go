package directives

import (
	"context"

	"go.uber.org/zap"

	arguments "github.com/hanpama/lighthouse/internal/arguments"
	executor "github.com/hanpama/lighthouse/internal/executor"
	language "github.com/hanpama/lighthouse/internal/language"
)

const BroadcastDirective = "broadcast"

// Broadcaster is satisfied by *subscriptions.Manager.
type Broadcaster interface {
	Broadcast(ctx context.Context, fieldName string, root any) error
	Queue(ctx context.Context, fieldName string, root any) error
}

// Broadcast implements @broadcast(subscription: "postCreated", shouldQueue: true).
// Once the field resolved without error its result is sent to the
// subscribers of the named subscription field. Broadcast failures are logged
// and never fail the field.
type Broadcast struct {
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

func (b *Broadcast) WrapResolver(d *language.Directive, next ResolveFunc) ResolveFunc {
	field, err := stringArg(d, "subscription")
	if err != nil {
		return func(context.Context, any, *arguments.ArgumentSet, *executor.ResolveInfo) (any, error) {
			return nil, err
		}
	}
	queue := boolArg(d, "shouldQueue")
	return func(ctx context.Context, source any, args *arguments.ArgumentSet, info *executor.ResolveInfo) (any, error) {
		result, err := next(ctx, source, args, info)
		if err != nil {
			return result, err
		}
		send := b.Broadcaster.Broadcast
		if queue {
			send = b.Broadcaster.Queue
		}
		if err := send(ctx, field, result); err != nil {
			b.logger().Warn("broadcast failed",
				zap.String("field", info.FieldName),
				zap.String("subscription", field),
				zap.Error(err))
		}
		return result, nil
	}
}

func (b *Broadcast) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}
