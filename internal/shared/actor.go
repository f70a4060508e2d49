package shared

import "context"

type actorContextKey struct{}

// ActorHeader is the request header carrying the acting user identity.
// The core never reads the actor from ambient state; middleware extracts it
// once and every operation receives it as an explicit parameter.
const ActorHeader = "X-Actor-ID"

// ContextWithActor stores the actor id in context.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the actor id from context. Empty when absent.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	return actor
}
