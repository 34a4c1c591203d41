package model

import "time"

// Reading represents one month of a room's water meter as stored in the
// `water_readings` table.  There is at most one reading per (RoomID, Month).
//
// Usage and TotalPrice are derived: Usage = ThisMonth - LastMonth and
// TotalPrice = Usage * PricePerUnit.  Only the billing package computes them.
type Reading struct {
    ID           uint64    `json:"id"`
    RoomID       uint64    `json:"roomId"`
    Month        string    `json:"month"`     // YYYY-MM
    LastMonth    float64   `json:"lastMonth"` // meter value at the start of the month
    ThisMonth    float64   `json:"thisMonth"` // meter value at the end of the month
    Usage        float64   `json:"usage"`
    PricePerUnit float64   `json:"pricePerUnit"`
    TotalPrice   float64   `json:"totalPrice"`
    CreatedAt    time.Time `json:"createdAt"`
    UpdatedAt    time.Time `json:"updatedAt"`

    // NegativeUsage is not persisted.  It is set on write responses when the
    // meter went backwards so the admin UI can flag the row for review.
    NegativeUsage bool `json:"negativeUsage,omitempty"`
}

// RoomReading is a reading joined with the room it belongs to.  It feeds the
// monthly summary and the CSV export.
type RoomReading struct {
    Reading
    RoomNumber string `json:"roomNumber"`
    OwnerName  string `json:"ownerName"`
}
