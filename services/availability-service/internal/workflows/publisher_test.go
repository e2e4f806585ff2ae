package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMock, m)

	m, err = ParseMode(" LIVE ")
	require.NoError(t, err)
	assert.Equal(t, ModeLive, m)

	_, err = ParseMode("staging")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	mock, err := Plan(ModeMock, []string{"wf-1", "wf-2"}, "", "org-1")
	require.NoError(t, err)
	require.Len(t, mock, 1)
	assert.Equal(t, []string{"wf-1", "wf-2"}, mock[0].WorkflowIDs)
	assert.True(t, mock[0].TestMode)
	assert.Empty(t, mock[0].BookingID)

	_, err = Plan(ModeReal, []string{"wf-1"}, "", "org-1")
	assert.ErrorIs(t, err, ErrBookingRequired)

	perWorkflow, err := Plan(ModeReal, []string{"wf-1", "wf-2"}, "bk-9", "org-1")
	require.NoError(t, err)
	require.Len(t, perWorkflow, 2)
	assert.True(t, perWorkflow[0].TestMode)
	assert.True(t, perWorkflow[1].DelayApplied)

	live, err := Plan(ModeLive, []string{"wf-1"}, "bk-9", "org-1")
	require.NoError(t, err)
	assert.False(t, live[0].TestMode)

	_, err = Plan(ModeMock, nil, "", "")
	assert.Error(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	p.now = func() time.Time { return time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC) }

	reqs, err := Plan(ModeReal, []string{"wf-1", "wf-2"}, "bk-9", "org-1")
	require.NoError(t, err)
	ids, err := p.Publish(context.Background(), reqs...)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
	require.Len(t, w.msgs, 2)

	msg := w.msgs[1]
	assert.Equal(t, "bk-9", string(msg.Key))
	assert.Equal(t, kafkax.EventMeta{EventID: ids[1], EventType: "workflow.execute.requested"}, kafkax.ExtractEventMeta(msg))

	var body ExecuteRequest
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, ids[1], body.EventID)
	assert.Equal(t, []string{"wf-2"}, body.WorkflowIDs)
	assert.True(t, body.RequestedAt.Equal(time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)))
}

func TestPublisher_MockKeyedByEventID(t *testing.T) {
	w := &fakeWriter{}
	reqs, err := Plan(ModeMock, []string{"wf-1"}, "", "")
	require.NoError(t, err)
	ids, err := NewPublisher(w).Publish(context.Background(), reqs...)
	require.NoError(t, err)
	assert.Equal(t, ids[0], string(w.msgs[0].Key))
}

func TestPublisher_WriteError(t *testing.T) {
	cause := errors.New("leader not available")
	_, err := NewPublisher(&fakeWriter{err: cause}).Publish(context.Background(), ExecuteRequest{WorkflowIDs: []string{"wf-1"}})
	assert.ErrorIs(t, err, cause)
}

func TestPublisher_PropagatesTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	_, err := NewPublisher(w).Publish(ctx, ExecuteRequest{WorkflowIDs: []string{"wf-1"}, TestMode: true})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	var body ExecuteRequest
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", body.Traceparent)

	consumed := trace.SpanContextFromContext(kafkax.ExtractTraceContext(context.Background(), w.msgs[0]))
	assert.Equal(t, traceID, consumed.TraceID())
}
