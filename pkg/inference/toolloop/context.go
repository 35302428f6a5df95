package toolloop

import (
	"context"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
)

// SnapshotHook observes the history at defined phases of a run: pre_inference,
// post_inference and post_tools.
type SnapshotHook func(ctx context.Context, history conversation.Conversation, phase string)

type snapshotHookKey struct{}

// WithSnapshotHookContext attaches a snapshot hook to the context, for callers that do not
// build the Loop themselves.
func WithSnapshotHookContext(ctx context.Context, hook SnapshotHook) context.Context {
	if hook == nil {
		return ctx
	}
	return context.WithValue(ctx, snapshotHookKey{}, hook)
}

func SnapshotHookFromContext(ctx context.Context) (SnapshotHook, bool) {
	v := ctx.Value(snapshotHookKey{})
	if v == nil {
		return nil, false
	}
	h, ok := v.(SnapshotHook)
	return h, ok && h != nil
}
