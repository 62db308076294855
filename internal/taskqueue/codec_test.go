package taskqueue

import (
	"testing"

	"github.com/swarmflow/swarmflow/pkg/api"
)

func TestCodec_RoundTrip(t *testing.T) {
	orig := api.Task{
		ID:          "abc-123",
		Description: "Process form order_intake",
		Callback:    "http://app:8000/forms/order_intake",
		Fields: api.Fields{
			{Name: "customer", Value: "ACME"},
			{Name: "qty", Value: 12.0},
			{Name: "notes", Value: nil},
		},
		Mode:      api.ModeAI,
		External:  true,
		Starter:   true,
		ReportRef: "http://app:8000/reports/orders",
	}

	data, err := EncodeTask(orig)
	if err != nil {
		t.Fatalf("EncodeTask failed: %v", err)
	}

	got, err := DecodeTask(data)
	if err != nil {
		t.Fatalf("DecodeTask failed: %v", err)
	}

	if got.ID != orig.ID || got.Description != orig.Description ||
		got.Callback != orig.Callback || got.Mode != orig.Mode ||
		got.External != orig.External || got.Starter != orig.Starter ||
		got.ReportRef != orig.ReportRef {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, orig)
	}
	if len(got.Fields) != len(orig.Fields) {
		t.Fatalf("field count mismatch: got %d want %d", len(got.Fields), len(orig.Fields))
	}
	for i := range orig.Fields {
		if got.Fields[i] != orig.Fields[i] {
			t.Fatalf("field %d mismatch: got %+v want %+v", i, got.Fields[i], orig.Fields[i])
		}
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	if _, err := DecodeTask([]byte("not json")); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}
