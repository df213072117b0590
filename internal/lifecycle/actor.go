package lifecycle

import "context"

// SystemActor is recorded when no caller identity is attached to the context.
const SystemActor = "system"

type actorKey struct{}

// WithActor attaches the identity recorded in history entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) string {
	if s, ok := ctx.Value(actorKey{}).(string); ok && s != "" {
		return s
	}
	return SystemActor
}
