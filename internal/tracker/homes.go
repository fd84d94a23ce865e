package tracker

import (
	"context"

	"github.com/google/uuid"
)

var validRoomCategories = map[RoomCategory]bool{
	RoomBedroom:    true,
	RoomKitchen:    true,
	RoomLivingArea: true,
	RoomBathroom:   true,
	RoomOther:      true,
}

var validDeviceCategories = map[DeviceCategory]bool{
	DeviceHVAC:          true,
	DeviceLighting:      true,
	DeviceAppliance:     true,
	DeviceEntertainment: true,
	DeviceOther:         true,
}

// CreateHome creates a home owned by the principal.
func (t *Tracker) CreateHome(ctx context.Context, principal *User, in HomeInput) (*Home, error) {
	if in.Name == "" {
		return nil, invalidf("name", "home name is required")
	}

	home := &Home{
		ID:      uuid.NewString(),
		UserID:  principal.ID,
		Name:    in.Name,
		Address: in.Address,
		Rooms:   []Room{},
	}
	if err := t.store.CreateHome(ctx, home); err != nil {
		return nil, unavailable(err)
	}
	return home, nil
}

// ListHomes returns every home the principal owns.
func (t *Tracker) ListHomes(ctx context.Context, principal *User) ([]Home, error) {
	homes, err := t.store.ListHomes(ctx, principal.ID)
	if err != nil {
		return nil, unavailable(err)
	}
	if homes == nil {
		homes = []Home{}
	}
	return homes, nil
}

// GetHome returns a single owned home with its full room/device tree.
func (t *Tracker) GetHome(ctx context.Context, homeID string, principal *User) (*Home, error) {
	return t.ownedHome(ctx, homeID, principal)
}

// UpdateHome changes a home's name and address. The room tree is mutated
// through AddRoom/AddDevice, not here.
func (t *Tracker) UpdateHome(ctx context.Context, homeID string, principal *User, in HomeInput) (*Home, error) {
	home, err := t.ownedHome(ctx, homeID, principal)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, invalidf("name", "home name is required")
	}

	home.Name = in.Name
	home.Address = in.Address
	if err := t.store.SaveHome(ctx, home); err != nil {
		return nil, unavailable(err)
	}
	return home, nil
}

// DeleteHome removes an owned home.
func (t *Tracker) DeleteHome(ctx context.Context, homeID string, principal *User) error {
	if _, err := t.ownedHome(ctx, homeID, principal); err != nil {
		return err
	}
	if err := t.store.DeleteHome(ctx, homeID); err != nil {
		return unavailable(err)
	}
	return nil
}

// AddRoom appends a room to an owned home's tree.
func (t *Tracker) AddRoom(ctx context.Context, homeID string, principal *User, in RoomInput) (*Home, error) {
	home, err := t.ownedHome(ctx, homeID, principal)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, invalidf("name", "room name is required")
	}
	if !validRoomCategories[in.Category] {
		return nil, invalidf("category", "unknown room category %q", in.Category)
	}

	home.Rooms = append(home.Rooms, Room{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Category: in.Category,
		Devices:  []Device{},
	})
	if err := t.store.SaveHome(ctx, home); err != nil {
		return nil, unavailable(err)
	}
	return home, nil
}

// AddDevice appends a device to a room, located by its stable ID within the
// owned home.
func (t *Tracker) AddDevice(ctx context.Context, homeID, roomID string, principal *User, in DeviceInput) (*Home, error) {
	home, err := t.ownedHome(ctx, homeID, principal)
	if err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, invalidf("name", "device name is required")
	}
	if !validDeviceCategories[in.Category] {
		return nil, invalidf("category", "unknown device category %q", in.Category)
	}
	if in.Wattage < 0 {
		return nil, invalidf("wattage", "wattage must not be negative")
	}

	room := home.roomByID(roomID)
	if room == nil {
		return nil, invalidf("roomId", "room not found")
	}

	room.Devices = append(room.Devices, Device{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Category: in.Category,
		Wattage:  in.Wattage,
		IsActive: true,
	})
	if err := t.store.SaveHome(ctx, home); err != nil {
		return nil, unavailable(err)
	}
	return home, nil
}

func (h *Home) roomByID(roomID string) *Room {
	for i := range h.Rooms {
		if h.Rooms[i].ID == roomID {
			return &h.Rooms[i]
		}
	}
	return nil
}
