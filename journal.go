package conduit

import (
	"context"
	"log/slog"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// JournalObserver appends the lifecycle of every run to an EventStore.
// The journal is an audit trail: it records what happened, not enough to
// resume a run.
//
// Store errors never affect the run; they are logged.
type JournalObserver struct {
	store  api.EventStore
	logger *slog.Logger
}

// NewJournalObserver creates a JournalObserver writing to store. If logger
// is nil, slog.Default() is used.
func NewJournalObserver(store api.EventStore, logger *slog.Logger) *JournalObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalObserver{store: store, logger: logger}
}

func (o *JournalObserver) append(ctx context.Context, c *Context, typ api.EventType, step int, detail string) {
	ev := api.RunEvent{
		RunID:  c.ID(),
		At:     time.Now(),
		Type:   typ,
		Name:   c.Name(),
		Step:   step,
		Detail: detail,
	}
	if p := c.Parent(); p != nil {
		ev.ParentID = p.ID()
	}
	if err := o.store.AppendEvent(ctx, ev); err != nil {
		o.logger.WarnContext(ctx, "journal_append_failed",
			slog.String("run_id", ev.RunID),
			slog.String("event", string(typ)),
			slog.Any("error", err),
		)
	}
}

func (o *JournalObserver) OnRunStart(ctx context.Context, c *Context) {
	o.append(ctx, c, api.EventRunStarted, -1, string(c.Mode()))
}

func (o *JournalObserver) OnStepDispatch(ctx context.Context, c *Context, step StepInfo) {
	o.append(ctx, c, api.EventStepDispatched, step.Index, step.Kind.String()+" "+step.Name)
}

func (o *JournalObserver) OnDataMerged(context.Context, *Context, []string) {}

func (o *JournalObserver) OnRunFinish(ctx context.Context, c *Context) {
	var detail string
	switch c.State() {
	case StateErrored:
		detail = c.Err().Error()
	case StateFailed:
		detail = c.Failure().Error()
	}
	o.append(ctx, c, api.TerminalEvent(c.State()), -1, detail)
}
