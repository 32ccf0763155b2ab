package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"jobfair/pkg/kafka"
	"jobfair/pkg/logger"
	"jobfair/pkg/middleware"
	"jobfair/pkg/model"
)

type mockProducer struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	return m.publishFunc(ctx, msg)
}

type mockEventRepo struct {
	appendFunc func(ctx context.Context, event *model.BookingEvent) (bool, error)
}

func (m *mockEventRepo) Append(ctx context.Context, event *model.BookingEvent) (bool, error) {
	return m.appendFunc(ctx, event)
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:        "6277a1f0c2a4b3d1e0f0aaaa",
		UserID:    "6277a1f0c2a4b3d1e0f0bbbb",
		Date:      time.Date(2022, 5, 10, 9, 0, 0, 0, time.UTC),
		Companies: []string{"6277a1f0c2a4b3d1e0f00001"},
	}
}

func TestNewEvent(t *testing.T) {
	booking := testBooking()
	actor := model.Actor{UserID: "admin-1", Role: model.RoleAdmin}

	event := NewEvent(model.BookingUpdated, booking, actor)

	if event.EventID == "" {
		t.Error("expected generated event ID")
	}
	if event.UserID != booking.UserID || event.ActorID != "admin-1" {
		t.Errorf("unexpected owner/actor %q/%q", event.UserID, event.ActorID)
	}
	booking.Companies[0] = "changed"
	if event.Companies[0] == "changed" {
		t.Error("event must not share the companies slice with the booking")
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	var got kafka.Message
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			got = msg
			return nil
		},
	}

	event := NewEvent(model.BookingCreated, testBooking(), model.Actor{UserID: "u1"})
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")

	if err := NewKafkaPublisher(producer).Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got.Key != event.UserID {
		t.Errorf("key = %q, want owner %q", got.Key, event.UserID)
	}
	if got.GetEventID() != event.EventID {
		t.Errorf("event id header = %q, want %q", got.GetEventID(), event.EventID)
	}
	if got.GetEventType() != model.BookingCreated {
		t.Errorf("event type header = %q", got.GetEventType())
	}
	if got.GetCorrelationID() != "req-123" {
		t.Errorf("correlation id = %q", got.GetCorrelationID())
	}
	if got.Headers[kafka.HeaderSource] != Source {
		t.Errorf("source = %q", got.Headers[kafka.HeaderSource])
	}
	if got.Headers[HeaderBookingID] != event.BookingID {
		t.Errorf("booking id header = %q, want %q", got.Headers[HeaderBookingID], event.BookingID)
	}
	if got.Headers[HeaderActorID] != "u1" {
		t.Errorf("actor id header = %q", got.Headers[HeaderActorID])
	}

	var decoded model.BookingEvent
	if err := json.Unmarshal(got.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.BookingID != event.BookingID {
		t.Errorf("payload booking id = %q", decoded.BookingID)
	}
}

func TestKafkaPublisher_PropagatesError(t *testing.T) {
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			return kafka.ErrProducerClosed
		},
	}
	err := NewKafkaPublisher(producer).Publish(context.Background(), NewEvent(model.BookingDeleted, testBooking(), model.Actor{}))
	if !errors.Is(err, kafka.ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestAuditHandler(t *testing.T) {
	event := NewEvent(model.BookingCreated, testBooking(), model.Actor{UserID: "u1"})
	valid, err := kafka.NewMessage().WithKey(event.UserID).WithValue(event).WithEventID(event.EventID).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		name      string
		msg       kafka.Message
		appendErr error
		inserted  bool
		wantErr   bool
		wantType  kafka.ErrorType
		wantCalls int
	}{
		{name: "new event", msg: valid, inserted: true, wantCalls: 1},
		{name: "duplicate event", msg: valid, inserted: false, wantCalls: 1},
		{
			name:      "storage failure is retried",
			msg:       valid,
			appendErr: errors.New("server selection error"),
			wantErr:   true,
			wantType:  kafka.ErrorTypeTransient,
			wantCalls: 1,
		},
		{
			name:     "malformed payload is permanent",
			msg:      kafka.Message{Key: "k", Value: []byte("{"), Headers: map[string]string{}},
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
		{
			name:     "missing event id is permanent",
			msg:      kafka.Message{Key: "k", Value: []byte(`{"type":"booking.created"}`), Headers: map[string]string{}},
			wantErr:  true,
			wantType: kafka.ErrorTypePermanent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			repo := &mockEventRepo{
				appendFunc: func(ctx context.Context, e *model.BookingEvent) (bool, error) {
					calls++
					if e.EventID != event.EventID {
						t.Errorf("event id = %q, want %q", e.EventID, event.EventID)
					}
					return tt.inserted, tt.appendErr
				},
			}

			err := NewAuditHandler(repo, logger.Discard())(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("handler error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && kafka.ClassifyError(err) != tt.wantType {
				t.Errorf("error type = %v, want %v", kafka.ClassifyError(err), tt.wantType)
			}
			if calls != tt.wantCalls {
				t.Errorf("append calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestAuditHandler_FallsBackToHeaderEventID(t *testing.T) {
	msg := kafka.Message{
		Key:     "k",
		Value:   []byte(`{"type":"booking.deleted"}`),
		Headers: map[string]string{kafka.HeaderEventID: "from-header"},
	}
	repo := &mockEventRepo{
		appendFunc: func(ctx context.Context, e *model.BookingEvent) (bool, error) {
			if e.EventID != "from-header" {
				t.Errorf("event id = %q", e.EventID)
			}
			return true, nil
		},
	}
	if err := NewAuditHandler(repo, logger.Discard())(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
