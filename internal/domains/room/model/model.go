package model

import "hotel/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID            = "id"
	FieldHotelName     = "hotel_name"
	FieldLocation      = "location"
	FieldPricePerNight = "price_per_night"
	FieldAvailable     = "available"
	FieldDescription   = "description"
	FieldImage         = "image"
	FieldCreatedBy     = "created_by"
)

type Room struct {
	ID            string  `db:"id"`
	HotelName     string  `db:"hotel_name"`
	Location      string  `db:"location"`
	PricePerNight float64 `db:"price_per_night"`
	Available     bool    `db:"available"`
	Description   string  `db:"description"`
	Image         string  `db:"image"`
	model.Metadata
}
