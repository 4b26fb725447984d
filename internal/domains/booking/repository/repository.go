package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hotel/infras/otel"
	"hotel/infras/postgres"
	"hotel/internal/domains/booking/model"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/logger"
	gRepo "hotel/shared/repository"
	"hotel/shared/timezone"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrOverlap is returned when storage rejected an insert as overlapping but the
// blocking booking could no longer be read back.
var ErrOverlap = errors.New("overlapping active booking")

const (
	bookingColumns = "id, user_id, room_id, check_in, check_out, total_price, number_of_nights, status, created_at, modified_at, created_by, modified_by"

	lockRoomQuery = "SELECT pg_advisory_xact_lock(hashtext($1))"

	conflictQuery = "SELECT " + bookingColumns + " FROM bookings " +
		"WHERE room_id = $1 AND status = $2 AND check_in < $3 AND check_out > $4 " +
		"ORDER BY check_in LIMIT 1"

	updateStatusQuery = "UPDATE bookings SET status = :to, modified_at = :modified_at, modified_by = :modified_by " +
		"WHERE id = :id AND status = :from"

	completeElapsedQuery = "UPDATE bookings SET status = $1, modified_at = $2, modified_by = $3 " +
		"WHERE status = $4 AND check_out <= $2 RETURNING " + bookingColumns
)

type Booking interface {
	FindByID(ctx context.Context, id string) (model.BookingDetail, error)
	ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error)
	ListAll(ctx context.Context) ([]model.BookingDetail, error)
	// FindConflict returns the earliest active booking of the room overlapping
	// [checkIn, checkOut), or a zero Booking when the range is free.
	FindConflict(ctx context.Context, roomID string, checkIn, checkOut time.Time) (model.Booking, error)
	// InsertIfAvailable stores the booking unless an active booking of the same room
	// overlaps it, in which case the blocking booking is returned and nothing is written.
	InsertIfAvailable(ctx context.Context, booking model.Booking) (model.Booking, error)
	// UpdateStatus moves a booking from one status to another and reports whether
	// the row was still in the expected status.
	UpdateStatus(ctx context.Context, id, from, to, actor string) (bool, error)
	CompleteElapsed(ctx context.Context, now time.Time) ([]model.Booking, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	detail gRepo.Repository[model.BookingDetail]
	db     *postgres.Connection
	otel   otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		detail:     gRepo.NewRepository[model.BookingDetail](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (r *repositoryImpl) FindByID(ctx context.Context, id string) (model.BookingDetail, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.FindByID")
	defer scope.End()

	return r.detail.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName)) //nolint:wrapcheck
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListByUser")
	defer scope.End()

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldUserID,
				Value:    userID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}

	return r.detail.GetAll(ctx, newestFirst(), filter) //nolint:wrapcheck
}

func (r *repositoryImpl) ListAll(ctx context.Context) ([]model.BookingDetail, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListAll")
	defer scope.End()

	return r.detail.GetAll(ctx, newestFirst(), gDto.FilterGroup{}) //nolint:wrapcheck
}

func (r *repositoryImpl) FindConflict(ctx context.Context, roomID string, checkIn, checkOut time.Time) (model.Booking, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.FindConflict")
	defer scope.End()

	return r.findConflict(ctx, r.db.Read, roomID, checkIn, checkOut)
}

func (r *repositoryImpl) findConflict(ctx context.Context, q sqlx.QueryerContext, roomID string, checkIn, checkOut time.Time) (model.Booking, error) {
	var conflict model.Booking

	err := sqlx.GetContext(ctx, q, &conflict, conflictQuery, roomID, model.StatusBooked, checkOut, checkIn)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return model.Booking{}, fmt.Errorf("failed to find conflicting booking: %w", err)
	}

	return conflict, nil
}

func (r *repositoryImpl) InsertIfAvailable(ctx context.Context, booking model.Booking) (conflict model.Booking, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.InsertIfAvailable")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	tx, err := r.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return conflict, fmt.Errorf("failed to begin booking transaction: %w", err)
	}

	committed := false

	defer func() {
		if committed {
			return
		}

		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorWithStack(rbErr)
		}
	}()

	if _, err = tx.ExecContext(ctx, lockRoomQuery, booking.RoomID); err != nil {
		logger.ErrorWithStack(err)

		return conflict, fmt.Errorf("failed to lock room: %w", err)
	}

	conflict, err = r.findConflict(ctx, tx, booking.RoomID, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return conflict, err
	}

	if conflict.ID != constant.Empty {
		return conflict, nil
	}

	if err = r.InsertTx(ctx, tx, booking); err != nil {
		if isExclusionViolation(err) {
			return r.blockingBooking(ctx, booking)
		}

		return conflict, fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		if isExclusionViolation(err) {
			return r.blockingBooking(ctx, booking)
		}

		logger.ErrorWithStack(err)

		return conflict, fmt.Errorf("failed to commit booking: %w", err)
	}

	committed = true

	return model.Booking{}, nil
}

// blockingBooking reads back the booking that won the race after the exclusion
// constraint rejected an insert.
func (r *repositoryImpl) blockingBooking(ctx context.Context, booking model.Booking) (model.Booking, error) {
	conflict, err := r.findConflict(ctx, r.db.Write, booking.RoomID, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return conflict, err
	}

	if conflict.ID == constant.Empty {
		return conflict, ErrOverlap
	}

	return conflict, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id, from, to, actor string) (bool, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.UpdateStatus")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, updateStatusQuery)

	result, err := r.db.Write.NamedExecContext(ctx, updateStatusQuery, map[string]any{
		"id":          id,
		"from":        from,
		"to":          to,
		"modified_at": timezone.Now(),
		"modified_by": actor,
	})
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *repositoryImpl) CompleteElapsed(ctx context.Context, now time.Time) ([]model.Booking, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.CompleteElapsed")
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, completeElapsedQuery)

	var completed []model.Booking

	err := r.db.Write.SelectContext(ctx, &completed, completeElapsedQuery,
		model.StatusCompleted, now, constant.ContextSystem, model.StatusBooked)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to complete elapsed bookings: %w", err)
	}

	return completed, nil
}

func newestFirst() gDto.QueryParams {
	return gDto.QueryParams{
		SortBy:  model.TableName + "." + model.FieldCreatedAt,
		SortDir: gDto.SortDirDesc,
	}
}

func isExclusionViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeExclusionViolation
}
