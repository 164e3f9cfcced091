package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const workflowScope = "github.com/civicworks/civic-api/workflow"

var (
	instrumentsOnce sync.Once
	transitions     metric.Int64Counter
	votes           metric.Int64Counter
	uploads         metric.Int64Counter
	submissions     metric.Int64Counter
)

// Instruments are created against the global meter, which forwards to the
// provider installed by Init even when created earlier.
func instruments() {
	instrumentsOnce.Do(func() {
		m := Meter(workflowScope)
		transitions, _ = m.Int64Counter("civic.workflow.transitions",
			metric.WithDescription("Issue workflow stage changes"),
		)
		votes, _ = m.Int64Counter("civic.votes",
			metric.WithDescription("Vote operations applied to issues"),
		)
		uploads, _ = m.Int64Counter("civic.media.uploads",
			metric.WithDescription("Media uploads by outcome"),
		)
		submissions, _ = m.Int64Counter("civic.progress.submissions",
			metric.WithDescription("Progress submissions by outcome"),
		)
	})
}

// RecordTransition counts an issue moving between workflow stages
func RecordTransition(ctx context.Context, from, to, cause string) {
	instruments()
	transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("cause", cause),
	))
}

func RecordVote(ctx context.Context, op, voteType string) {
	instruments()
	votes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("vote_type", voteType),
	))
}

func RecordUpload(ctx context.Context, ok bool) {
	instruments()
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordSubmission(ctx context.Context, outcome string) {
	instruments()
	submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
