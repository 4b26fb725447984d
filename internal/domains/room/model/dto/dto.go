package dto

import (
	"hotel/internal/domains/room/model"
	"hotel/shared"
	gDto "hotel/shared/dto"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	HotelName     string  `json:"hotel_name"      validate:"required,max=150"`
	Location      string  `json:"location"        validate:"required,max=150"`
	PricePerNight float64 `json:"price_per_night" validate:"gte=0"`
	Available     *bool   `json:"available"       validate:"omitempty"`
	Description   string  `json:"description"     validate:"omitempty,max=1000"`
	// Image is a base64 data URL, e.g. data:image/png;base64,...
	Image string `json:"image" validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=2"`
}

func (c *CreateRoomRequest) ToModel(user string, imageURL string) model.Room {
	available := true
	if c.Available != nil {
		available = *c.Available
	}

	now := timezone.Now()

	return model.Room{
		ID:            uuid.NewString(),
		HotelName:     c.HotelName,
		Location:      c.Location,
		PricePerNight: c.PricePerNight,
		Available:     available,
		Description:   c.Description,
		Image:         imageURL,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateRoomRequest struct {
	HotelName     string   `db:"hotel_name"      json:"hotel_name"      validate:"omitempty,max=150"`
	Location      string   `db:"location"        json:"location"        validate:"omitempty,max=150"`
	PricePerNight *float64 `db:"price_per_night" json:"price_per_night" validate:"omitempty,gte=0"`
	Available     *bool    `db:"available"       json:"available"       validate:"omitempty"`
	Description   string   `db:"description"     json:"description"     validate:"omitempty,max=1000"`
	Image         string   `db:"-"               json:"image"           validate:"omitempty,mimetypes=image/png image/jpg image/jpeg,maxfilesize=2"`
}

// IsEmpty reports whether the request changes nothing.
func (u *UpdateRoomRequest) IsEmpty() bool {
	return *u == UpdateRoomRequest{}
}

type RoomResponse struct {
	ID            string  `json:"id"`
	HotelName     string  `json:"hotel_name"`
	Location      string  `json:"location"`
	PricePerNight float64 `json:"price_per_night"`
	Available     bool    `json:"available"`
	Description   string  `json:"description"`
	Image         string  `json:"image"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.HotelName = model.HotelName
	r.Location = model.Location
	r.PricePerNight = model.PricePerNight
	r.Available = model.Available
	r.Description = model.Description
	r.Image = model.Image
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}
