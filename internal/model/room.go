package model

import "time"

// Room represents a condo unit as stored in the `rooms` table.  RoomNumber
// is unique across the building and both text fields are stored trimmed.
type Room struct {
    ID         uint64    `json:"id"`         // rooms.id
    RoomNumber string    `json:"roomNumber"` // rooms.room_number (unique)
    OwnerName  string    `json:"ownerName"`  // rooms.owner_name
    CreatedAt  time.Time `json:"createdAt"`  // rooms.created_at
    UpdatedAt  time.Time `json:"updatedAt"`  // rooms.updated_at
}

// RoomPatch carries a partial room update.  Nil fields are left untouched.
type RoomPatch struct {
    RoomNumber *string
    OwnerName  *string
}

// RoomFilter narrows room listings.  Search matches room number or owner
// name as a substring.
type RoomFilter struct {
    Search string
    Limit  int
    Offset int
}
