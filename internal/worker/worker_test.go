package worker_test

import (
	"context"
	"errors"
	"hotel/config"
	kafkaMocks "hotel/infras/kafka/mocks"
	"hotel/infras/otel/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	"hotel/internal/worker"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Booking.SweepIntervalSeconds = 3600
	cfg.Kafka.BookingTopic = "booking.events"

	return cfg
}

func TestWorker_SweepRunsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	bookings := bookingMocks.NewMockBookingService(ctrl)
	w := worker.New(newConfig(), bookings, kafkaMocks.NewMockClient(ctrl), mocks.NewOtel())

	ctx, cancel := context.WithCancel(context.Background())

	bookings.EXPECT().CompleteElapsed(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		cancel()

		return 2, nil
	})

	done := make(chan struct{})
	go func() {
		w.Sweep(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not stop after cancellation")
	}
}

func TestWorker_SweepSurvivesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	bookings := bookingMocks.NewMockBookingService(ctrl)
	w := worker.New(newConfig(), bookings, kafkaMocks.NewMockClient(ctrl), mocks.NewOtel())

	ctx, cancel := context.WithCancel(context.Background())

	bookings.EXPECT().CompleteElapsed(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		cancel()

		return 0, errors.New("database error")
	})

	assert.NotPanics(t, func() { w.Sweep(ctx) })
}

func TestWorker_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	bookings := bookingMocks.NewMockBookingService(ctrl)
	client := kafkaMocks.NewMockClient(ctrl)
	w := worker.New(newConfig(), bookings, client, mocks.NewOtel())

	ctx, cancel := context.WithCancel(context.Background())

	bookings.EXPECT().CompleteElapsed(gomock.Any()).Return(0, nil).AnyTimes()
	client.EXPECT().Consume(gomock.Any(), "", "booking.events", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ any) error {
			cancel()
			<-ctx.Done()

			return nil
		})

	assert.NoError(t, w.Run(ctx))
}

func TestWorker_LogEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := worker.New(newConfig(), bookingMocks.NewMockBookingService(ctrl), kafkaMocks.NewMockClient(ctrl), mocks.NewOtel())

	tests := []struct {
		name  string
		value string
	}{
		{"booking event", `{"type":"booking.created","booking_id":"b-1","room_id":"r-1","total_price":300}`},
		{"undecodable payload is skipped", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.LogEvent(context.Background(), kafkaGo.Message{Key: []byte("r-1"), Value: []byte(tt.value)})

			assert.NoError(t, err)
		})
	}
}
