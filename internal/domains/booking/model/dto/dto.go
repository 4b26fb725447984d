package dto

import (
	"fmt"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/pricing"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"
	"time"

	"github.com/google/uuid"
)

const invalidDateMessage = "%s must be an RFC3339 timestamp or a YYYY-MM-DD date"

type CreateBookingRequest struct {
	RoomID   string `json:"room_id"   validate:"required,uuid"`
	CheckIn  string `json:"check_in"  validate:"required,instant"`
	CheckOut string `json:"check_out" validate:"required,instant"`
}

// Stay parses the requested check-in and check-out instants.
func (c *CreateBookingRequest) Stay() (time.Time, time.Time, error) {
	return ParseStay(c.CheckIn, c.CheckOut)
}

// ToModel builds a booked reservation priced from the room's nightly rate.
func (c *CreateBookingRequest) ToModel(userID string, checkIn, checkOut time.Time, pricePerNight float64) model.Booking {
	nights := pricing.Nights(checkIn, checkOut)
	now := timezone.Now()

	return model.Booking{
		ID:             uuid.NewString(),
		UserID:         userID,
		RoomID:         c.RoomID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		NumberOfNights: nights,
		TotalPrice:     pricing.TotalPrice(nights, pricePerNight),
		Status:         model.StatusBooked,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  userID,
			ModifiedBy: userID,
		},
	}
}

type AvailabilityRequest struct {
	RoomID   string `json:"room_id"   validate:"required,uuid"`
	CheckIn  string `json:"check_in"  validate:"required,instant"`
	CheckOut string `json:"check_out" validate:"required,instant"`
}

func (a *AvailabilityRequest) Stay() (time.Time, time.Time, error) {
	return ParseStay(a.CheckIn, a.CheckOut)
}

// ParseStay parses both ends of a stay. Ordering is checked by the caller.
func ParseStay(checkIn, checkOut string) (in time.Time, out time.Time, err error) {
	in, err = timezone.ParseInstant(checkIn)
	if err != nil {
		return in, out, failure.BadRequestFromString(fmt.Sprintf(invalidDateMessage, "check_in")) //nolint:wrapcheck
	}

	out, err = timezone.ParseInstant(checkOut)
	if err != nil {
		return in, out, failure.BadRequestFromString(fmt.Sprintf(invalidDateMessage, "check_out")) //nolint:wrapcheck
	}

	return in, out, nil
}

type RoomSnapshot struct {
	ID            string  `json:"id"`
	HotelName     string  `json:"hotel_name"`
	Location      string  `json:"location"`
	PricePerNight float64 `json:"price_per_night"`
}

type BookingResponse struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Room           RoomSnapshot `json:"room"`
	CheckIn        string       `json:"check_in"`
	CheckOut       string       `json:"check_out"`
	NumberOfNights int          `json:"number_of_nights"`
	TotalPrice     float64      `json:"total_price"`
	Status         string       `json:"status"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.BookingDetail) {
	r.ID = model.ID
	r.UserID = model.UserID
	r.Room = RoomSnapshot{
		ID:            model.RoomID,
		HotelName:     model.HotelName,
		Location:      model.Location,
		PricePerNight: model.PricePerNight,
	}
	r.CheckIn = timezone.Format(model.CheckIn, constant.DateFormat)
	r.CheckOut = timezone.Format(model.CheckOut, constant.DateFormat)
	r.NumberOfNights = model.NumberOfNights
	r.TotalPrice = model.TotalPrice
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

func FromModels(models []model.BookingDetail) []BookingResponse {
	res := make([]BookingResponse, len(models))
	for i, mod := range models {
		res[i].FromModel(mod)
	}

	return res
}

// ConflictDetail names the interval of the booking that blocks a request.
type ConflictDetail struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (c *ConflictDetail) FromModel(model model.Booking) {
	*c = NewConflictDetail(model.CheckIn, model.CheckOut)
}

// NewConflictDetail describes a blocked interval when the blocking booking is unknown.
func NewConflictDetail(checkIn, checkOut time.Time) ConflictDetail {
	return ConflictDetail{
		CheckIn:  timezone.Format(checkIn, constant.DateFormat),
		CheckOut: timezone.Format(checkOut, constant.DateFormat),
	}
}

type AvailabilityResponse struct {
	RoomID     string          `json:"room_id"`
	CheckIn    string          `json:"check_in"`
	CheckOut   string          `json:"check_out"`
	Available  bool            `json:"available"`
	Nights     int             `json:"nights"`
	TotalPrice float64         `json:"total_price"`
	Conflict   *ConflictDetail `json:"conflict,omitempty"`
}

const (
	EventCreated   = "booking.created"
	EventCancelled = "booking.cancelled"
	EventCompleted = "booking.completed"
)

// BookingEvent is the payload published on every lifecycle transition.
type BookingEvent struct {
	Type       string  `json:"type"`
	BookingID  string  `json:"booking_id"`
	UserID     string  `json:"user_id"`
	RoomID     string  `json:"room_id"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	TotalPrice float64 `json:"total_price"`
	Status     string  `json:"status"`
	OccurredAt string  `json:"occurred_at"`
}

func NewBookingEvent(eventType string, model model.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  model.ID,
		UserID:     model.UserID,
		RoomID:     model.RoomID,
		CheckIn:    timezone.Format(model.CheckIn, constant.DateFormat),
		CheckOut:   timezone.Format(model.CheckOut, constant.DateFormat),
		TotalPrice: model.TotalPrice,
		Status:     model.Status,
		OccurredAt: timezone.Format(timezone.Now(), constant.DateFormat),
	}
}
