package service_test

import (
	"context"
	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/repository"
	"hotel/internal/domains/booking/service"
	roomMocks "hotel/internal/domains/room/mocks"
	roomModel "hotel/internal/domains/room/model"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/timezone"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// memoryStore keeps bookings in memory with the same atomic check-and-insert
// guarantee the Postgres repository gives.
type memoryStore struct {
	mu       sync.Mutex
	rooms    map[string]roomModel.Room
	bookings []model.Booking
	loads    atomic.Int32
}

func newMemoryStore(rooms ...roomModel.Room) *memoryStore {
	store := &memoryStore{rooms: map[string]roomModel.Room{}}
	for _, room := range rooms {
		store.rooms[room.ID] = room
	}

	return store
}

func (m *memoryStore) detail(booking model.Booking) model.BookingDetail {
	room := m.rooms[booking.RoomID]

	return model.BookingDetail{
		Booking:       booking,
		HotelName:     room.HotelName,
		Location:      room.Location,
		PricePerNight: room.PricePerNight,
	}
}

func (m *memoryStore) FindByID(_ context.Context, id string) (model.BookingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, booking := range m.bookings {
		if booking.ID == id {
			return m.detail(booking), nil
		}
	}

	return model.BookingDetail{}, nil
}

func (m *memoryStore) list(keep func(model.Booking) bool) []model.BookingDetail {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads.Add(1)

	res := []model.BookingDetail{}
	for _, booking := range slices.Backward(m.bookings) {
		if keep(booking) {
			res = append(res, m.detail(booking))
		}
	}

	return res
}

func (m *memoryStore) ListByUser(_ context.Context, userID string) ([]model.BookingDetail, error) {
	return m.list(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (m *memoryStore) ListAll(_ context.Context) ([]model.BookingDetail, error) {
	return m.list(func(model.Booking) bool { return true }), nil
}

func (m *memoryStore) conflict(roomID string, checkIn, checkOut time.Time) model.Booking {
	var found model.Booking

	for _, booking := range m.bookings {
		if booking.RoomID != roomID || !booking.Overlaps(checkIn, checkOut) {
			continue
		}

		if found.ID == constant.Empty || booking.CheckIn.Before(found.CheckIn) {
			found = booking
		}
	}

	return found
}

func (m *memoryStore) FindConflict(_ context.Context, roomID string, checkIn, checkOut time.Time) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.conflict(roomID, checkIn, checkOut), nil
}

func (m *memoryStore) InsertIfAvailable(_ context.Context, booking model.Booking) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conflict := m.conflict(booking.RoomID, booking.CheckIn, booking.CheckOut); conflict.ID != constant.Empty {
		return conflict, nil
	}

	m.bookings = append(m.bookings, booking)

	return model.Booking{}, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id, from, to, actor string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.bookings {
		if m.bookings[i].ID == id && m.bookings[i].Status == from {
			m.bookings[i].Status = to
			m.bookings[i].ModifiedBy = actor
			m.bookings[i].ModifiedAt = timezone.Now()

			return true, nil
		}
	}

	return false, nil
}

func (m *memoryStore) CompleteElapsed(_ context.Context, now time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed []model.Booking

	for i := range m.bookings {
		if m.bookings[i].Status == model.StatusBooked && !m.bookings[i].CheckOut.After(now) {
			m.bookings[i].Status = model.StatusCompleted
			completed = append(completed, m.bookings[i])
		}
	}

	return completed, nil
}

// heldStore pauses the next ListByUser after it has read the store, until release
// is closed. A load that wakes up with a finished context fails.
type heldStore struct {
	*memoryStore

	hold    atomic.Bool
	held    chan struct{}
	release chan struct{}
}

func newHeldStore(rooms ...roomModel.Room) *heldStore {
	return &heldStore{
		memoryStore: newMemoryStore(rooms...),
		held:        make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (h *heldStore) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	res, err := h.memoryStore.ListByUser(ctx, userID)

	if h.hold.CompareAndSwap(true, false) {
		close(h.held)
		<-h.release

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return res, err
}

type scenario struct {
	svc   service.Booking
	store *memoryStore
	cache cache.Cache
}

func newScenario(t *testing.T, rooms ...roomModel.Room) scenario {
	t.Helper()

	store := newMemoryStore(rooms...)

	return newScenarioOver(t, store, store)
}

// newScenarioOver runs the service on repo, which reads and writes store.
func newScenarioOver(t *testing.T, store *memoryStore, repo repository.Booking) scenario {
	t.Helper()

	ctrl := gomock.NewController(t)

	roomRepo := roomMocks.NewMockRoom(ctrl)
	roomRepo.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, filter gDto.FilterGroup, _ ...string) (roomModel.Room, error) {
			id, _ := filter.Filters[0].(gDto.Filter).Value.(string)

			return store.rooms[id], nil
		}).AnyTimes()

	cfg := &config.Config{}
	cfg.Booking.ListCacheTTL = 1800
	cfg.Kafka.BookingTopic = "booking.events"

	ot := mocks.NewOtel()
	memCache := cache.NewMemoryCache(ot)

	return scenario{
		svc:   service.New(repo, roomRepo, cfg, memCache, kafka.New(cfg, ot), ot),
		store: store,
		cache: memCache,
	}
}

func seaView() roomModel.Room {
	return roomModel.Room{
		ID:            uuid.NewString(),
		HotelName:     "Sea View",
		Location:      "Lisbon",
		PricePerNight: 100,
		Available:     true,
	}
}

func stay(roomID, checkIn, checkOut string) dto.CreateBookingRequest {
	return dto.CreateBookingRequest{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut}
}

func requireKind(t *testing.T, err error, kind string) *failure.Failure {
	t.Helper()

	var f *failure.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, kind, f.Kind, f.Message)

	return f
}

func TestBookingLifecycle(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	guestA, guestB, guestC := uuid.NewString(), uuid.NewString(), uuid.NewString()

	first, err := sc.svc.Create(ctx, guestA, stay(room.ID, "2024-01-10", "2024-01-13"))
	require.NoError(t, err)
	assert.Equal(t, 3, first.NumberOfNights)
	assert.InDelta(t, 300.0, first.TotalPrice, 0.001)
	assert.Equal(t, model.StatusBooked, first.Status)
	assert.Equal(t, "Sea View", first.Room.HotelName)
	assert.Equal(t, "Lisbon", first.Room.Location)
	assert.InDelta(t, 100.0, first.Room.PricePerNight, 0.001)

	_, err = sc.svc.Create(ctx, guestB, stay(room.ID, "2024-01-12", "2024-01-14"))
	f := requireKind(t, err, failure.KindConflict)
	assert.Equal(t, dto.ConflictDetail{CheckIn: first.CheckIn, CheckOut: first.CheckOut}, f.Detail)

	adjoining, err := sc.svc.Create(ctx, guestC, stay(room.ID, "2024-01-13", "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 2, adjoining.NumberOfNights)

	cancelled, err := sc.svc.Cancel(ctx, first.ID, guestA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, guestA, cancelled.ModifiedBy)

	_, err = sc.svc.Cancel(ctx, first.ID, guestA)
	requireKind(t, err, failure.KindAlreadyCancelled)

	rebooked, err := sc.svc.Create(ctx, guestB, stay(room.ID, "2024-01-10", "2024-01-13"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusBooked, rebooked.Status)

	got, err := sc.svc.Get(ctx, rebooked.ID, guestB)
	require.NoError(t, err)
	assert.Equal(t, rebooked.ID, got.ID)
}

func TestCreateRejections(t *testing.T) {
	room := seaView()
	closed := seaView()
	closed.Available = false

	sc := newScenario(t, room, closed)
	guest := uuid.NewString()

	tests := []struct {
		name string
		req  dto.CreateBookingRequest
		kind string
	}{
		{"missing room", stay("", "2024-01-10", "2024-01-13"), failure.KindValidation},
		{"malformed room id", stay("room-1", "2024-01-10", "2024-01-13"), failure.KindValidation},
		{"missing check in", stay(room.ID, "", "2024-01-13"), failure.KindValidation},
		{"malformed check out", stay(room.ID, "2024-01-10", "13/01/2024"), failure.KindValidation},
		{"unknown room", stay(uuid.NewString(), "2024-01-10", "2024-01-13"), failure.KindNotFound},
		{"closed room", stay(closed.ID, "2024-01-10", "2024-01-13"), failure.KindUnavailable},
		{"equal dates", stay(room.ID, "2024-01-10", "2024-01-10"), failure.KindInvalidRange},
		{"reversed dates", stay(room.ID, "2024-01-13", "2024-01-10"), failure.KindInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sc.svc.Create(context.Background(), guest, tt.req)
			requireKind(t, err, tt.kind)
		})
	}

	all, err := sc.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOwnershipIsEnforced(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	owner, admin := uuid.NewString(), uuid.NewString()

	booking, err := sc.svc.Create(ctx, owner, stay(room.ID, "2024-02-01", "2024-02-03"))
	require.NoError(t, err)

	_, err = sc.svc.Get(ctx, booking.ID, admin)
	requireKind(t, err, failure.KindForbidden)

	_, err = sc.svc.Cancel(ctx, booking.ID, admin)
	requireKind(t, err, failure.KindForbidden)

	_, err = sc.svc.Get(ctx, uuid.NewString(), owner)
	requireKind(t, err, failure.KindNotFound)

	_, err = sc.svc.Get(ctx, "not-a-uuid", owner)
	requireKind(t, err, failure.KindValidation)
}

func TestListsStayFresh(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	guest := uuid.NewString()

	mine, err := sc.svc.ListForUser(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := sc.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	first, err := sc.svc.Create(ctx, guest, stay(room.ID, "2024-03-01", "2024-03-04"))
	require.NoError(t, err)

	second, err := sc.svc.Create(ctx, guest, stay(room.ID, "2024-03-10", "2024-03-12"))
	require.NoError(t, err)

	mine, err = sc.svc.ListForUser(ctx, guest)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	all, err = sc.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = sc.svc.Cancel(ctx, first.ID, guest)
	require.NoError(t, err)

	mine, err = sc.svc.ListForUser(ctx, guest)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, model.StatusCancelled, mine[1].Status)

	all, err = sc.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, all[1].Status)
}

func TestListIsServedFromCache(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	guest := uuid.NewString()

	_, err := sc.svc.Create(ctx, guest, stay(room.ID, "2024-04-01", "2024-04-02"))
	require.NoError(t, err)

	for range 3 {
		mine, err := sc.svc.ListForUser(ctx, guest)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	}

	assert.Equal(t, int32(1), sc.store.loads.Load())

	var cached []dto.BookingResponse
	require.NoError(t, sc.cache.Get(ctx, service.UserBookingsKey(guest), &cached))
	assert.Len(t, cached, 1)
}

func TestConcurrentOverlappingCreates(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)

	const attempts = 24

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Every request shares 2024-05-10..2024-05-11 with every other one.
			checkOut := time.Date(2024, 5, 11+i%4, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

			_, err := sc.svc.Create(context.Background(), uuid.NewString(), stay(room.ID, "2024-05-10T00:00:00Z", checkOut))
			switch {
			case err == nil:
				succeeded.Add(1)
			case failure.Is(err, failure.KindConflict):
				conflicts.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), conflicts.Load())

	all, err := sc.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCompleteElapsed(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	guest := uuid.NewString()
	past := timezone.Now().AddDate(0, 0, -10)
	future := timezone.Now().AddDate(0, 0, 10)

	elapsed, err := sc.svc.Create(ctx, guest, stay(room.ID, past.Format(time.RFC3339), past.AddDate(0, 0, 2).Format(time.RFC3339)))
	require.NoError(t, err)

	upcoming, err := sc.svc.Create(ctx, guest, stay(room.ID, future.Format(time.RFC3339), future.AddDate(0, 0, 2).Format(time.RFC3339)))
	require.NoError(t, err)

	_, err = sc.svc.ListForUser(ctx, guest)
	require.NoError(t, err)

	count, err := sc.svc.CompleteElapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mine, err := sc.svc.ListForUser(ctx, guest)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, upcoming.ID, mine[0].ID)
	assert.Equal(t, model.StatusBooked, mine[0].Status)
	assert.Equal(t, elapsed.ID, mine[1].ID)
	assert.Equal(t, model.StatusCompleted, mine[1].Status)

	_, err = sc.svc.Cancel(ctx, elapsed.ID, guest)
	requireKind(t, err, failure.KindInvalidState)
}

func TestCheckAvailability(t *testing.T) {
	room := seaView()
	sc := newScenario(t, room)
	ctx := context.Background()

	booked, err := sc.svc.Create(ctx, uuid.NewString(), stay(room.ID, "2024-06-10", "2024-06-12"))
	require.NoError(t, err)

	free, err := sc.svc.CheckAvailability(ctx, dto.AvailabilityRequest{RoomID: room.ID, CheckIn: "2024-06-12", CheckOut: "2024-06-15"})
	require.NoError(t, err)
	assert.True(t, free.Available)
	assert.Equal(t, 3, free.Nights)
	assert.InDelta(t, 300.0, free.TotalPrice, 0.001)
	assert.Nil(t, free.Conflict)

	taken, err := sc.svc.CheckAvailability(ctx, dto.AvailabilityRequest{RoomID: room.ID, CheckIn: "2024-06-11", CheckOut: "2024-06-13"})
	require.NoError(t, err)
	assert.False(t, taken.Available)
	require.NotNil(t, taken.Conflict)
	assert.Equal(t, booked.CheckIn, taken.Conflict.CheckIn)

	_, err = sc.svc.CheckAvailability(ctx, dto.AvailabilityRequest{RoomID: room.ID, CheckIn: "2024-06-11", CheckOut: "2024-06-11"})
	requireKind(t, err, failure.KindInvalidRange)
}

func listWithin(t *testing.T, svc service.Booking, userID string) []dto.BookingResponse {
	t.Helper()

	type result struct {
		res []dto.BookingResponse
		err error
	}

	done := make(chan result, 1)

	go func() {
		res, err := svc.ListForUser(context.Background(), userID)
		done <- result{res, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)

		return r.res
	case <-time.After(2 * time.Second):
		require.FailNow(t, "list did not return")

		return nil
	}
}

func TestListAfterCancelIgnoresLoadInFlight(t *testing.T) {
	room := seaView()
	store := newHeldStore(room)
	sc := newScenarioOver(t, store.memoryStore, store)
	ctx := context.Background()

	guest := uuid.NewString()

	booking, err := sc.svc.Create(ctx, guest, stay(room.ID, "2024-07-01", "2024-07-03"))
	require.NoError(t, err)

	store.hold.Store(true)

	early := make(chan []dto.BookingResponse, 1)

	go func() {
		res, _ := sc.svc.ListForUser(ctx, guest)
		early <- res
	}()

	<-store.held

	_, err = sc.svc.Cancel(ctx, booking.ID, guest)
	require.NoError(t, err)

	mine := listWithin(t, sc.svc, guest)
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusCancelled, mine[0].Status)

	close(store.release)

	stale := <-early
	require.Len(t, stale, 1)
	assert.Equal(t, model.StatusBooked, stale[0].Status)

	mine = listWithin(t, sc.svc, guest)
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusCancelled, mine[0].Status)

	var cached []dto.BookingResponse
	require.NoError(t, sc.cache.Get(ctx, service.UserBookingsKey(guest), &cached))
	require.Len(t, cached, 1)
	assert.Equal(t, model.StatusCancelled, cached[0].Status)
}

func TestCancelledReaderDoesNotFailSharedLoad(t *testing.T) {
	room := seaView()
	store := newHeldStore(room)
	sc := newScenarioOver(t, store.memoryStore, store)

	guest := uuid.NewString()

	_, err := sc.svc.Create(context.Background(), guest, stay(room.ID, "2024-08-01", "2024-08-02"))
	require.NoError(t, err)

	store.hold.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	failed := make(chan error, 1)

	go func() {
		_, err := sc.svc.ListForUser(ctx, guest)
		failed <- err
	}()

	<-store.held
	cancel()
	require.ErrorIs(t, <-failed, context.Canceled)

	close(store.release)

	mine := listWithin(t, sc.svc, guest)
	require.Len(t, mine, 1)
	assert.Equal(t, int32(1), store.loads.Load())
}
