package worker

import (
	"context"
	"fmt"
	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/service"
	"hotel/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const defaultSweepInterval = 5 * time.Minute

// Worker runs the background jobs of the booking lifecycle: the completion sweep and
// the booking event log.
type Worker struct {
	cfg      *config.Config
	bookings service.Booking
	kafka    kafka.Client
	otel     otel.Otel
}

func New(cfg *config.Config, bookings service.Booking, kafka kafka.Client, otel otel.Otel) *Worker {
	return &Worker{
		cfg:      cfg,
		bookings: bookings,
		kafka:    kafka,
		otel:     otel,
	}
}

// Run blocks until ctx is done or a job fails.
func (w *Worker) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		w.Sweep(ctx)

		return nil
	})

	group.Go(func() error {
		err := w.kafka.Consume(ctx, constant.Empty, w.cfg.Kafka.BookingTopic, w.LogEvent)
		if err != nil {
			return fmt.Errorf("booking event consumer stopped: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	return nil
}

func (w *Worker) interval() time.Duration {
	if w.cfg.Booking.SweepIntervalSeconds <= 0 {
		return defaultSweepInterval
	}

	return time.Duration(w.cfg.Booking.SweepIntervalSeconds) * time.Second
}

// Sweep completes elapsed bookings once immediately and then on every tick.
func (w *Worker) Sweep(ctx context.Context) {
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval()).Msg("Booking completion sweep started")

	for {
		w.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Booking completion sweep stopped")

			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	ctx, scope := w.otel.NewScope(ctx, constant.OtelWorkerScopeName, constant.OtelWorkerScopeName+".booking.Sweep")
	defer scope.End()

	count, err := w.bookings.CompleteElapsed(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to complete elapsed bookings")

		return
	}

	scope.SetAttribute("booking.completed", count)

	if count > 0 {
		log.Info().Int("count", count).Msg("Completed elapsed bookings")
	}
}

// LogEvent writes one consumed booking event to the log. Undecodable messages are
// logged and skipped so a bad payload cannot stall the partition.
func (w *Worker) LogEvent(ctx context.Context, message kafkaGo.Message) error {
	_, scope := w.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".booking.Log")
	defer scope.End()

	event, err := kafka.Decode[dto.BookingEvent](message)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("key", string(message.Key)).Msg("skipping undecodable booking event")

		return nil
	}

	log.Info().
		Str("type", event.Type).
		Str("bookingID", event.BookingID).
		Str("userID", event.UserID).
		Str("roomID", event.RoomID).
		Str("checkIn", event.CheckIn).
		Str("checkOut", event.CheckOut).
		Float64("totalPrice", event.TotalPrice).
		Str("status", event.Status).
		Str("occurredAt", event.OccurredAt).
		Msg("Booking event")

	return nil
}
