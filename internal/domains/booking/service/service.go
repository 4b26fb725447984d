package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"errors"
	"fmt"
	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/pricing"
	"hotel/internal/domains/booking/repository"
	roomModel "hotel/internal/domains/room/model"
	roomRepo "hotel/internal/domains/room/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/shared/timezone"
	"hotel/shared/validator"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	cacheUserPrefix     = "user"
	cacheBookingsSuffix = "bookings"
	cacheAllBookings    = "bookings:all"

	listLoadTimeout = 10 * time.Second
)

const (
	msgRoomNotFound     = "room not found"
	msgBookingNotFound  = "booking not found"
	msgRoomUnavailable  = "room is not available for booking"
	msgInvalidRange     = "check_out must be after check_in"
	msgRoomBooked       = "room is already booked for the requested dates"
	msgNotOwner         = "you do not have access to this booking"
	msgAlreadyCancelled = "booking is already cancelled"
	msgCompleted        = "completed bookings cannot be cancelled"
)

// UserBookingsKey is the cache key holding the booking list of one user.
func UserBookingsKey(userID string) string {
	return shared.BuildCacheKey(cacheUserPrefix, userID, cacheBookingsSuffix)
}

// AllBookingsKey is the cache key holding the list of every booking.
func AllBookingsKey() string {
	return cacheAllBookings
}

type Booking interface {
	Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id, requesterID string) (dto.BookingResponse, error)
	ListForUser(ctx context.Context, userID string) ([]dto.BookingResponse, error)
	ListAll(ctx context.Context) ([]dto.BookingResponse, error)
	Cancel(ctx context.Context, id, requesterID string) (dto.BookingResponse, error)
	CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (dto.AvailabilityResponse, error)
	CompleteElapsed(ctx context.Context) (int, error)
}

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	cfg      *config.Config
	cache    cache.Cache
	kafka    kafka.Client
	otel     otel.Otel
	loads    singleflight.Group

	// generations counts invalidations per cache key. A list load only stores its
	// result when no invalidation of the key happened since it started.
	mu          sync.Mutex
	generations map[string]uint64
}

func New(repo repository.Booking, roomRepo roomRepo.Room, cfg *config.Config, cache cache.Cache, kafka kafka.Client, otel otel.Otel) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		cfg:      cfg,
		cache:    cache,
		kafka:    kafka,
		otel:     otel,

		generations: map[string]uint64{},
	}
}

func (s *serviceImpl) Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if userID == constant.Empty {
		return res, failure.Unauthorized("user is not authenticated") // nolint:wrapcheck
	}

	if err = validator.ValidateStruct(&req); err != nil {
		return res, err
	}

	checkIn, checkOut, err := req.Stay()
	if err != nil {
		return res, err
	}

	room, err := s.findRoom(ctx, req.RoomID)
	if err != nil {
		return res, err
	}

	if !room.Available {
		return res, failure.Unavailable(msgRoomUnavailable) // nolint:wrapcheck
	}

	if !checkOut.After(checkIn) {
		return res, failure.InvalidRange(msgInvalidRange) // nolint:wrapcheck
	}

	booking := req.ToModel(userID, checkIn, checkOut, room.PricePerNight)

	conflict, err := s.repo.InsertIfAvailable(ctx, booking)
	if errors.Is(err, repository.ErrOverlap) {
		return res, failure.ConflictWithDetail(msgRoomBooked, dto.NewConflictDetail(checkIn, checkOut)) // nolint:wrapcheck
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, fmt.Errorf("failed to create booking: %w", err)
	}

	if conflict.ID != constant.Empty {
		var detail dto.ConflictDetail
		detail.FromModel(conflict)

		return res, failure.ConflictWithDetail(msgRoomBooked, detail) // nolint:wrapcheck
	}

	s.invalidate(ctx, UserBookingsKey(userID), AllBookingsKey())
	s.publish(ctx, dto.EventCreated, booking)

	log.Info().Str("bookingID", booking.ID).Str("roomID", booking.RoomID).Msg("booking created")

	res.FromModel(model.BookingDetail{
		Booking:       booking,
		HotelName:     room.HotelName,
		Location:      room.Location,
		PricePerNight: room.PricePerNight,
	})

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id, requesterID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.findOwned(ctx, id, requesterID)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) ListForUser(ctx context.Context, userID string) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ListForUser")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if userID == constant.Empty {
		return res, failure.Unauthorized("user is not authenticated") // nolint:wrapcheck
	}

	return s.readThrough(ctx, UserBookingsKey(userID), func(ctx context.Context) ([]model.BookingDetail, error) {
		return s.repo.ListByUser(ctx, userID) //nolint:wrapcheck
	})
}

func (s *serviceImpl) ListAll(ctx context.Context) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ListAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.readThrough(ctx, AllBookingsKey(), s.repo.ListAll)
}

func (s *serviceImpl) Cancel(ctx context.Context, id, requesterID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.findOwned(ctx, id, requesterID)
	if err != nil {
		return res, err
	}

	if err = transitionError(booking.Status); err != nil {
		return res, err
	}

	updated, err := s.repo.UpdateStatus(ctx, booking.ID, model.StatusBooked, model.StatusCancelled, requesterID)
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return res, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if !updated {
		// Another request moved the booking first; report what it became.
		current, err := s.repo.FindByID(ctx, booking.ID)
		if err != nil {
			return res, fmt.Errorf("failed to get booking: %w", err)
		}

		if err = transitionError(current.Status); err != nil {
			return res, err
		}

		return res, failure.InvalidState("booking changed while cancelling") // nolint:wrapcheck
	}

	booking.Status = model.StatusCancelled
	booking.ModifiedAt = timezone.Now()
	booking.ModifiedBy = requesterID

	s.invalidate(ctx, UserBookingsKey(booking.UserID), AllBookingsKey())
	s.publish(ctx, dto.EventCancelled, booking.Booking)

	log.Info().Str("bookingID", booking.ID).Msg("booking cancelled")

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.CheckAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = validator.ValidateStruct(&req); err != nil {
		return res, err
	}

	checkIn, checkOut, err := req.Stay()
	if err != nil {
		return res, err
	}

	room, err := s.findRoom(ctx, req.RoomID)
	if err != nil {
		return res, err
	}

	if !checkOut.After(checkIn) {
		return res, failure.InvalidRange(msgInvalidRange) // nolint:wrapcheck
	}

	conflict, err := s.repo.FindConflict(ctx, room.ID, checkIn, checkOut)
	if err != nil {
		log.Error().Err(err).Msg("failed to check room availability")

		return res, fmt.Errorf("failed to check room availability: %w", err)
	}

	res.RoomID = room.ID
	res.CheckIn = timezone.Format(checkIn, constant.DateFormat)
	res.CheckOut = timezone.Format(checkOut, constant.DateFormat)
	res.Nights = pricing.Nights(checkIn, checkOut)
	res.TotalPrice = pricing.TotalPrice(res.Nights, room.PricePerNight)
	res.Available = room.Available && conflict.ID == constant.Empty

	if conflict.ID != constant.Empty {
		res.Conflict = &dto.ConflictDetail{}
		res.Conflict.FromModel(conflict)
	}

	return res, nil
}

// CompleteElapsed marks every booked stay whose check-out has passed as completed.
func (s *serviceImpl) CompleteElapsed(ctx context.Context) (count int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.CompleteElapsed")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	completed, err := s.repo.CompleteElapsed(ctx, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to complete elapsed bookings")

		return 0, fmt.Errorf("failed to complete elapsed bookings: %w", err)
	}

	if len(completed) == 0 {
		return 0, nil
	}

	seen := map[string]bool{}
	keys := []string{AllBookingsKey()}

	for _, booking := range completed {
		if !seen[booking.UserID] {
			seen[booking.UserID] = true
			keys = append(keys, UserBookingsKey(booking.UserID))
		}

		s.publish(ctx, dto.EventCompleted, booking)
	}

	s.invalidate(ctx, keys...)

	return len(completed), nil
}

func (s *serviceImpl) findRoom(ctx context.Context, roomID string) (roomModel.Room, error) {
	room, err := s.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get room")

		return room, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return room, failure.NotFound(msgRoomNotFound) // nolint:wrapcheck
	}

	return room, nil
}

func (s *serviceImpl) findOwned(ctx context.Context, id, requesterID string) (model.BookingDetail, error) {
	if err := validator.ValidateVar(id, "required,uuid"); err != nil {
		return model.BookingDetail{}, err
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(msgBookingNotFound) // nolint:wrapcheck
	}

	if booking.UserID != requesterID {
		return booking, failure.Forbidden(msgNotOwner) // nolint:wrapcheck
	}

	return booking, nil
}

// readThrough serves a booking list from cache, loading and storing it on a miss.
// Concurrent misses of one key share a single load, which runs detached from the
// callers so one cancelled request does not fail the others.
func (s *serviceImpl) readThrough(ctx context.Context, key string, load func(context.Context) ([]model.BookingDetail, error)) ([]dto.BookingResponse, error) {
	var res []dto.BookingResponse

	generation := s.generation(key)

	err := s.cache.Get(ctx, key, &res)
	if err == nil {
		log.Debug().Str("cacheKey", key).Msg("cache hit for bookings")

		return res, nil
	}

	if !errors.Is(err, cache.Nil) {
		log.Warn().Err(err).Str("cacheKey", key).Msg("failed to read bookings from cache")
	}

	// Loads started before an invalidation are never joined by later readers.
	flight := fmt.Sprintf("%s#%d", key, generation)

	loading := s.loads.DoChan(flight, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listLoadTimeout)
		defer cancel()

		models, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		loaded := dto.FromModels(models)
		s.store(loadCtx, key, generation, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to get bookings: %w", ctx.Err())
	case result := <-loading:
		if result.Err != nil {
			log.Error().Err(result.Err).Msg("failed to get bookings")

			return nil, fmt.Errorf("failed to get bookings: %w", result.Err)
		}

		loaded, _ := result.Val.([]dto.BookingResponse)

		return loaded, nil
	}
}

// store caches a loaded list unless the key was invalidated after the load began.
// The second check catches an invalidation that ran while Save was in flight.
func (s *serviceImpl) store(ctx context.Context, key string, generation uint64, loaded []dto.BookingResponse) {
	if s.generation(key) != generation {
		log.Debug().Str("cacheKey", key).Msg("bookings changed during load, not caching")

		return
	}

	if err := s.cache.Save(ctx, key, loaded, s.cfg.Booking.ListCacheTTL); err != nil {
		log.Error().Err(err).Str("cacheKey", key).Msg("failed to save bookings to cache")

		return
	}

	if s.generation(key) != generation {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to drop stale bookings from cache")
		}
	}
}

func (s *serviceImpl) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generations[key]
}

// invalidate drops cached lists after a write. The generation bump comes first so a
// load racing the write never stores what it read.
func (s *serviceImpl) invalidate(ctx context.Context, keys ...string) {
	s.mu.Lock()
	for _, key := range keys {
		s.generations[key]++
	}
	s.mu.Unlock()

	shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, keys...)
}

func (s *serviceImpl) publish(ctx context.Context, eventType string, booking model.Booking) {
	message := kafka.Message{Key: booking.RoomID, Value: dto.NewBookingEvent(eventType, booking)}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.kafka.SendMessages(c, s.cfg.Kafka.BookingTopic, message); err != nil {
			log.Error().Err(err).Str("event", eventType).Str("bookingID", booking.ID).Msg("failed to publish booking event")
		}
	}()
}

func transitionError(status string) error {
	switch status {
	case model.StatusCancelled:
		return failure.AlreadyCancelled(msgAlreadyCancelled) // nolint:wrapcheck
	case model.StatusCompleted:
		return failure.InvalidState(msgCompleted) // nolint:wrapcheck
	default:
		return nil
	}
}
