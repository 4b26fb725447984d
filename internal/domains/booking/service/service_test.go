package service_test

import (
	"context"
	"errors"
	"hotel/config"
	kafkaMocks "hotel/infras/kafka/mocks"
	"hotel/infras/otel"
	"hotel/infras/otel/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/repository"
	"hotel/internal/domains/booking/service"
	roomMocks "hotel/internal/domains/room/mocks"
	roomModel "hotel/internal/domains/room/model"
	"hotel/shared/cache"
	cacheMocks "hotel/shared/cache/mocks"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

var errStore = errors.New("connection refused")

type mocked struct {
	repo  *bookingMocks.MockBooking
	rooms *roomMocks.MockRoom
	cache *cacheMocks.MockCache
	kafka *kafkaMocks.MockClient
	svc   service.Booking
}

func newMocked(t *testing.T) mocked {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := mocked{
		repo:  bookingMocks.NewMockBooking(ctrl),
		rooms: roomMocks.NewMockRoom(ctrl),
		cache: cacheMocks.NewMockCache(ctrl),
		kafka: kafkaMocks.NewMockClient(ctrl),
	}

	cfg := &config.Config{}
	cfg.Booking.ListCacheTTL = 1800
	cfg.Kafka.BookingTopic = "booking.events"

	m.kafka.EXPECT().SendMessages(gomock.Any(), "booking.events", gomock.Any()).Return(errors.New("broker down")).AnyTimes()
	m.svc = service.New(m.repo, m.rooms, cfg, m.cache, m.kafka, mocks.NewOtel())

	return m
}

func (m mocked) allowInvalidation() {
	m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func openRoom() roomModel.Room {
	return roomModel.Room{ID: uuid.NewString(), HotelName: "Harbour", Location: "Oslo", PricePerNight: 80, Available: true}
}

func TestCreate_Failures(t *testing.T) {
	room := openRoom()
	req := dto.CreateBookingRequest{RoomID: room.ID, CheckIn: "2024-01-10", CheckOut: "2024-01-12"}
	user := uuid.NewString()

	tests := []struct {
		name      string
		userID    string
		setupMock func(m mocked)
		kind      string
	}{
		{
			name:      "unauthenticated caller",
			userID:    "",
			setupMock: func(mocked) {},
			kind:      failure.KindUnauthorized,
		},
		{
			name:   "room lookup fails",
			userID: user,
			setupMock: func(m mocked) {
				m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{}, errStore)
			},
			kind: failure.KindInternal,
		},
		{
			name:   "insert fails",
			userID: user,
			setupMock: func(m mocked) {
				m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
				m.repo.EXPECT().InsertIfAvailable(gomock.Any(), gomock.Any()).Return(model.Booking{}, errStore)
			},
			kind: failure.KindInternal,
		},
		{
			name:   "exclusion constraint without readable winner",
			userID: user,
			setupMock: func(m mocked) {
				m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
				m.repo.EXPECT().InsertIfAvailable(gomock.Any(), gomock.Any()).Return(model.Booking{}, repository.ErrOverlap)
			},
			kind: failure.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMock(m)

			_, err := m.svc.Create(context.Background(), tt.userID, req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.GetKind(err))
		})
	}
}

func TestCreate_CacheOutageDoesNotFailWrite(t *testing.T) {
	m := newMocked(t)
	room := openRoom()
	user := uuid.NewString()

	m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
	m.repo.EXPECT().InsertIfAvailable(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, booking model.Booking) (model.Booking, error) {
			assert.Equal(t, user, booking.UserID)
			assert.Equal(t, 2, booking.NumberOfNights)
			assert.InDelta(t, 160.0, booking.TotalPrice, 0.001)

			return model.Booking{}, nil
		})

	outage := errors.New("redis: connection pool timeout")
	m.cache.EXPECT().Delete(gomock.Any(), service.UserBookingsKey(user)).Return(outage)
	m.cache.EXPECT().Clear(gomock.Any(), service.UserBookingsKey(user)+":*").Return(outage)
	m.cache.EXPECT().Delete(gomock.Any(), service.AllBookingsKey()).Return(outage)
	m.cache.EXPECT().Clear(gomock.Any(), service.AllBookingsKey()+":*").Return(outage)

	res, err := m.svc.Create(context.Background(), user, dto.CreateBookingRequest{RoomID: room.ID, CheckIn: "2024-01-10", CheckOut: "2024-01-12"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, res.Status)
	assert.Equal(t, "Harbour", res.Room.HotelName)
}

func TestCreate_OverlapWithoutWinnerReportsRequestedStay(t *testing.T) {
	m := newMocked(t)
	room := openRoom()
	req := dto.CreateBookingRequest{RoomID: room.ID, CheckIn: "2024-01-10", CheckOut: "2024-01-12"}

	checkIn, checkOut, err := req.Stay()
	require.NoError(t, err)

	m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
	m.repo.EXPECT().InsertIfAvailable(gomock.Any(), gomock.Any()).Return(model.Booking{}, repository.ErrOverlap)

	_, err = m.svc.Create(context.Background(), uuid.NewString(), req)

	var f *failure.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, failure.KindConflict, f.Kind)
	assert.Equal(t, dto.NewConflictDetail(checkIn, checkOut), f.Detail)
}

func TestCreate_FailureIsTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctrl := gomock.NewController(t)
	svc := service.New(bookingMocks.NewMockBooking(ctrl), roomMocks.NewMockRoom(ctrl), &config.Config{},
		cacheMocks.NewMockCache(ctrl), kafkaMocks.NewMockClient(ctrl), otel.NewWithProvider(provider))

	_, err := svc.Create(context.Background(), "", dto.CreateBookingRequest{})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, constant.OtelServiceScopeName+".booking.Create", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCreate_InvalidatesEvenWhenRequestIsCancelled(t *testing.T) {
	m := newMocked(t)
	room := openRoom()

	ctx, cancel := context.WithCancel(context.Background())

	m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
	m.repo.EXPECT().InsertIfAvailable(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, model.Booking) (model.Booking, error) {
			cancel()

			return model.Booking{}, nil
		})

	invalidated := 0
	m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ string) error {
		assert.NoError(t, ctx.Err())
		invalidated++

		return nil
	}).Times(2)
	m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := m.svc.Create(ctx, uuid.NewString(), dto.CreateBookingRequest{RoomID: room.ID, CheckIn: "2024-01-10", CheckOut: "2024-01-12"})
	require.NoError(t, err)
	assert.Equal(t, 2, invalidated)
}

func TestListForUser_ReadThrough(t *testing.T) {
	user := uuid.NewString()
	key := service.UserBookingsKey(user)
	cached := []dto.BookingResponse{{ID: uuid.NewString(), Status: model.StatusBooked}}
	stored := []model.BookingDetail{{Booking: model.Booking{ID: uuid.NewString(), UserID: user, Status: model.StatusBooked}}}

	tests := []struct {
		name      string
		setupMock func(m mocked)
		wantID    string
		kind      string
	}{
		{
			name: "cache hit skips store",
			setupMock: func(m mocked) {
				m.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).DoAndReturn(func(_ context.Context, _ string, value any) error {
					*(value.(*[]dto.BookingResponse)) = cached

					return nil
				})
			},
			wantID: cached[0].ID,
		},
		{
			name: "miss loads and stores with list ttl",
			setupMock: func(m mocked) {
				m.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).Return(cache.Nil)
				m.repo.EXPECT().ListByUser(gomock.Any(), user).Return(stored, nil)
				m.cache.EXPECT().Save(gomock.Any(), key, gomock.Any(), 1800).Return(nil)
			},
			wantID: stored[0].ID,
		},
		{
			name: "cache read failure is a miss",
			setupMock: func(m mocked) {
				m.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).Return(errors.New("i/o timeout"))
				m.repo.EXPECT().ListByUser(gomock.Any(), user).Return(stored, nil)
				m.cache.EXPECT().Save(gomock.Any(), key, gomock.Any(), 1800).Return(nil)
			},
			wantID: stored[0].ID,
		},
		{
			name: "cache write failure still answers",
			setupMock: func(m mocked) {
				m.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).Return(cache.Nil)
				m.repo.EXPECT().ListByUser(gomock.Any(), user).Return(stored, nil)
				m.cache.EXPECT().Save(gomock.Any(), key, gomock.Any(), 1800).Return(errors.New("OOM"))
			},
			wantID: stored[0].ID,
		},
		{
			name: "store failure",
			setupMock: func(m mocked) {
				m.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).Return(cache.Nil)
				m.repo.EXPECT().ListByUser(gomock.Any(), user).Return(nil, errStore)
			},
			kind: failure.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMock(m)

			res, err := m.svc.ListForUser(context.Background(), user)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, failure.GetKind(err))

				return
			}

			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, tt.wantID, res[0].ID)
		})
	}
}

func TestCancel_Transitions(t *testing.T) {
	owner := uuid.NewString()
	id := uuid.NewString()

	withStatus := func(status string) model.BookingDetail {
		return model.BookingDetail{Booking: model.Booking{ID: id, UserID: owner, Status: status}}
	}

	tests := []struct {
		name      string
		setupMock func(m mocked)
		kind      string
	}{
		{
			name: "completed booking",
			setupMock: func(m mocked) {
				m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusCompleted), nil)
			},
			kind: failure.KindInvalidState,
		},
		{
			name: "lost race to another cancel",
			setupMock: func(m mocked) {
				gomock.InOrder(
					m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusBooked), nil),
					m.repo.EXPECT().UpdateStatus(gomock.Any(), id, model.StatusBooked, model.StatusCancelled, owner).Return(false, nil),
					m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusCancelled), nil),
				)
			},
			kind: failure.KindAlreadyCancelled,
		},
		{
			name: "lost race to the completion sweep",
			setupMock: func(m mocked) {
				gomock.InOrder(
					m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusBooked), nil),
					m.repo.EXPECT().UpdateStatus(gomock.Any(), id, model.StatusBooked, model.StatusCancelled, owner).Return(false, nil),
					m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusCompleted), nil),
				)
			},
			kind: failure.KindInvalidState,
		},
		{
			name: "update fails",
			setupMock: func(m mocked) {
				m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusBooked), nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), id, model.StatusBooked, model.StatusCancelled, owner).Return(false, errStore)
			},
			kind: failure.KindInternal,
		},
		{
			name: "cancelled",
			setupMock: func(m mocked) {
				m.repo.EXPECT().FindByID(gomock.Any(), id).Return(withStatus(model.StatusBooked), nil)
				m.repo.EXPECT().UpdateStatus(gomock.Any(), id, model.StatusBooked, model.StatusCancelled, owner).Return(true, nil)
				m.allowInvalidation()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocked(t)
			tt.setupMock(m)

			res, err := m.svc.Cancel(context.Background(), id, owner)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, failure.GetKind(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, model.StatusCancelled, res.Status)
		})
	}
}

func TestCompleteElapsed_InvalidatesAffectedLists(t *testing.T) {
	m := newMocked(t)

	alice, bob := uuid.NewString(), uuid.NewString()
	checkOut := time.Now().Add(-time.Hour)

	m.repo.EXPECT().CompleteElapsed(gomock.Any(), gomock.Any()).Return([]model.Booking{
		{ID: uuid.NewString(), UserID: alice, CheckOut: checkOut, Status: model.StatusCompleted},
		{ID: uuid.NewString(), UserID: bob, CheckOut: checkOut, Status: model.StatusCompleted},
		{ID: uuid.NewString(), UserID: alice, CheckOut: checkOut, Status: model.StatusCompleted},
	}, nil)

	for _, key := range []string{service.AllBookingsKey(), service.UserBookingsKey(alice), service.UserBookingsKey(bob)} {
		m.cache.EXPECT().Delete(gomock.Any(), key).Return(nil).Times(1)
		m.cache.EXPECT().Clear(gomock.Any(), key+":*").Return(nil).Times(1)
	}

	count, err := m.svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCompleteElapsed_NothingDue(t *testing.T) {
	m := newMocked(t)

	m.repo.EXPECT().CompleteElapsed(gomock.Any(), gomock.Any()).Return(nil, nil)

	count, err := m.svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCheckAvailability_ClosedRoom(t *testing.T) {
	m := newMocked(t)
	room := openRoom()
	room.Available = false

	m.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(room, nil)
	m.repo.EXPECT().FindConflict(gomock.Any(), room.ID, gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

	res, err := m.svc.CheckAvailability(context.Background(), dto.AvailabilityRequest{RoomID: room.ID, CheckIn: "2024-01-10", CheckOut: "2024-01-11"})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Nil(t, res.Conflict)
	assert.Equal(t, 1, res.Nights)
}
