package dto_test

import (
	"testing"

	"hotel/internal/domains/room/model"
	"hotel/internal/domains/room/model/dto"
	gModel "hotel/shared/model"
	"hotel/shared/timezone"

	"github.com/stretchr/testify/assert"
)

func TestCreateRoomRequest_ToModel(t *testing.T) {
	closed := false

	tests := []struct {
		name          string
		available     *bool
		wantAvailable bool
	}{
		{"defaults to available", nil, true},
		{"explicitly closed", &closed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := dto.CreateRoomRequest{
				HotelName:     "Seaside",
				Location:      "Bali",
				PricePerNight: 100,
				Available:     tt.available,
			}

			room := req.ToModel("admin-1", "https://cdn.example.com/room/a.png")

			assert.NotEmpty(t, room.ID, "expected ID to be generated")
			assert.Equal(t, req.HotelName, room.HotelName)
			assert.Equal(t, req.PricePerNight, room.PricePerNight)
			assert.Equal(t, tt.wantAvailable, room.Available)
			assert.Equal(t, "https://cdn.example.com/room/a.png", room.Image)
			assert.Equal(t, "admin-1", room.CreatedBy)
			assert.False(t, room.CreatedAt.IsZero(), "expected CreatedAt to be set")
		})
	}
}

func TestUpdateRoomRequest_IsEmpty(t *testing.T) {
	price := 0.0

	assert.True(t, (&dto.UpdateRoomRequest{}).IsEmpty())
	assert.False(t, (&dto.UpdateRoomRequest{PricePerNight: &price}).IsEmpty())
	assert.False(t, (&dto.UpdateRoomRequest{Location: "Bali"}).IsEmpty())
}

func TestGetRoomsResponse_FromModels(t *testing.T) {
	now := timezone.Now()
	rooms := []model.Room{
		{ID: "room-1", HotelName: "Seaside", Metadata: gModel.Metadata{CreatedAt: now, CreatedBy: "admin-1"}},
		{ID: "room-2", HotelName: "Summit", Metadata: gModel.Metadata{CreatedAt: now, CreatedBy: "admin-1"}},
	}

	var response dto.GetRoomsResponse
	response.FromModels(rooms, 21, 10)

	assert.Equal(t, 21, response.TotalData)
	assert.Equal(t, 3, response.TotalPage)
	assert.Len(t, response.Rooms, 2)
	assert.Equal(t, "Summit", response.Rooms[1].HotelName)
	assert.Equal(t, "admin-1", response.Rooms[0].CreatedBy)
}
