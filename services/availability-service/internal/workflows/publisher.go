package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptslots/libs/otel"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "workflow.execute.requested.v1"
	eventType    = "workflow.execute.requested"
)

// Mode selects how the workflow runner treats a test execution.
type Mode string

const (
	// ModeMock runs every workflow in test mode against synthetic booking data.
	ModeMock Mode = "mock"
	// ModeReal runs in test mode against a real booking; side effects are suppressed.
	ModeReal Mode = "real"
	// ModeLive runs in production mode against a real booking and performs real actions.
	ModeLive Mode = "live"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeMock, nil
	case ModeMock, ModeReal, ModeLive:
		return m, nil
	}
	return "", fmt.Errorf("unknown test mode %q (want mock, real or live)", s)
}

var ErrBookingRequired = errors.New("booking id is required for real and live runs")

// ExecuteRequest asks the workflow runner to execute workflows for a booking.
type ExecuteRequest struct {
	EventID      string    `json:"event_id"`
	WorkflowIDs  []string  `json:"workflow_ids"`
	BookingID    string    `json:"booking_id,omitempty"`
	OrganizerID  string    `json:"organizer_id,omitempty"`
	TestMode     bool      `json:"test_mode"`
	DelayApplied bool      `json:"delay_applied"`
	RequestedAt  time.Time `json:"requested_at"`
	Traceparent  string    `json:"traceparent,omitempty"`
}

// Plan turns a test run into execution requests: one bulk request for mock runs, one request per
// workflow otherwise.
func Plan(mode Mode, workflowIDs []string, bookingID, organizerID string) ([]ExecuteRequest, error) {
	if len(workflowIDs) == 0 {
		return nil, errors.New("no workflows selected")
	}
	if mode == ModeMock {
		return []ExecuteRequest{{WorkflowIDs: workflowIDs, OrganizerID: organizerID, TestMode: true}}, nil
	}
	if strings.TrimSpace(bookingID) == "" {
		return nil, ErrBookingRequired
	}
	out := make([]ExecuteRequest, 0, len(workflowIDs))
	for _, id := range workflowIDs {
		out = append(out, ExecuteRequest{
			WorkflowIDs:  []string{id},
			BookingID:    bookingID,
			OrganizerID:  organizerID,
			TestMode:     mode == ModeReal,
			DelayApplied: true,
		})
	}
	return out, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher hands execution requests to the workflow runner over Kafka.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewPublisher(writer messageWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// Publish assigns each request an event id, writes them in one batch and returns the ids in order.
func (p *Publisher) Publish(ctx context.Context, reqs ...ExecuteRequest) ([]string, error) {
	traceparent, _ := otelx.TraceContextStrings(ctx)
	msgs := make([]kafka.Message, 0, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		req.EventID = uuid.NewString()
		req.RequestedAt = p.now().UTC()
		req.Traceparent = traceparent

		body, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		key := req.BookingID
		if key == "" {
			key = req.EventID
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(key),
			Value:   body,
			Headers: kafkax.InjectTraceHeaders(ctx, kafkax.EventMeta{EventID: req.EventID, EventType: eventType}.Headers()),
		})
		ids = append(ids, req.EventID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return nil, fmt.Errorf("publish workflow execution: %w", err)
	}
	return ids, nil
}
