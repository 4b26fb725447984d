package model

import (
	"hotel/shared/model"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID             = "id"
	FieldUserID         = "user_id"
	FieldRoomID         = "room_id"
	FieldCheckIn        = "check_in"
	FieldCheckOut       = "check_out"
	FieldTotalPrice     = "total_price"
	FieldNumberOfNights = "number_of_nights"
	FieldStatus         = "status"
	FieldCreatedAt      = "created_at"
)

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

type Booking struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	RoomID         string    `db:"room_id"`
	CheckIn        time.Time `db:"check_in"`
	CheckOut       time.Time `db:"check_out"`
	TotalPrice     float64   `db:"total_price"`
	NumberOfNights int       `db:"number_of_nights"`
	Status         string    `db:"status"`
	model.Metadata
}

// Overlaps reports whether an active booking blocks the half-open stay [checkIn, checkOut).
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.Status == StatusBooked && b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

// BookingDetail is a booking joined with the room snapshot shown to guests.
type BookingDetail struct {
	Booking
	HotelName     string  `column:"hotel_name"      db:"hotel_name"      table:"rooms"`
	Location      string  `column:"location"        db:"location"        table:"rooms"`
	PricePerNight float64 `column:"price_per_night" db:"price_per_night" table:"rooms"`
}

func (BookingDetail) GetJoinQuery() string {
	return "LEFT JOIN rooms ON rooms.id = bookings.room_id"
}
