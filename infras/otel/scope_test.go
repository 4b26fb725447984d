package otel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestToAttribute(t *testing.T) {
	checkIn := time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{"bool", true, attribute.BoolValue(true)},
		{"string", "booked", attribute.StringValue("booked")},
		{"int", 3, attribute.IntValue(3)},
		{"int64", int64(7), attribute.Int64Value(7)},
		{"float64", 450.5, attribute.Float64Value(450.5)},
		{"strings", []string{"admin", "superadmin"}, attribute.StringSliceValue([]string{"admin", "superadmin"})},
		{"time", checkIn, attribute.StringValue("2024-01-10T14:00:00Z")},
		{"duration", 5 * time.Minute, attribute.StringValue("5m0s")},
		{"fallback", struct{ N int }{2}, attribute.StringValue("{2}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := toAttribute("k", tt.value)

			assert.Equal(t, attribute.Key("k"), kv.Key)
			assert.Equal(t, tt.want, kv.Value)
		})
	}
}

func TestScope_RecordsErrorAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	o := &otelImpl{TracerProvider: provider}

	_, scope := o.NewScope(t.Context(), "service", "service.booking.Create")
	scope.SetAttributes(map[string]any{"booking.nights": 3})
	scope.TraceIfError(nil)
	scope.TraceIfError(errors.New("room already booked"))
	scope.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "service.booking.Create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("booking.nights", 3))
}
