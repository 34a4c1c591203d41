package billing

import (
	"errors"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

// ErrNoReadings is returned by Summarize for an empty month.
var ErrNoReadings = errors.New("no readings found")

// UsageRecord identifies the room behind an extreme usage value.
type UsageRecord struct {
	Usage      float64 `json:"usage"`
	RoomID     uint64  `json:"roomId"`
	RoomNumber string  `json:"roomNumber"`
	OwnerName  string  `json:"ownerName"`
}

// Summary is the fleet-wide statistics of one month.
type Summary struct {
	Month         string      `json:"month"`
	TotalRooms    int         `json:"totalRooms"`
	TotalUsage    float64     `json:"totalUsage"`
	TotalRevenue  float64     `json:"totalRevenue"`
	AverageUsage  float64     `json:"averageUsage"`
	AveragePrice  float64     `json:"averagePrice"`
	MaxUsage      UsageRecord `json:"maxUsage"`
	MinUsage      UsageRecord `json:"minUsage"`
	ReadingsCount int         `json:"readingsCount"`
}

// Summarize aggregates the readings of month.  Averages divide by the number
// of distinct rooms, not readings.  On ties for max or min usage the first
// row in input order wins.  Totals and averages are rounded with Round2.
func Summarize(month string, rows []model.RoomReading) (Summary, error) {
	if len(rows) == 0 {
		return Summary{}, ErrNoReadings
	}

	rooms := make(map[uint64]struct{}, len(rows))
	var totalUsage, totalRevenue float64
	maxRow, minRow := rows[0], rows[0]
	for _, r := range rows {
		rooms[r.RoomID] = struct{}{}
		totalUsage += r.Usage
		totalRevenue += r.TotalPrice
		if r.Usage > maxRow.Usage {
			maxRow = r
		}
		if r.Usage < minRow.Usage {
			minRow = r
		}
	}

	n := float64(len(rooms))
	return Summary{
		Month:         month,
		TotalRooms:    len(rooms),
		TotalUsage:    Round2(totalUsage),
		TotalRevenue:  Round2(totalRevenue),
		AverageUsage:  Round2(totalUsage / n),
		AveragePrice:  Round2(totalRevenue / n),
		MaxUsage:      usageRecord(maxRow),
		MinUsage:      usageRecord(minRow),
		ReadingsCount: len(rows),
	}, nil
}

func usageRecord(r model.RoomReading) UsageRecord {
	return UsageRecord{
		Usage:      r.Usage,
		RoomID:     r.RoomID,
		RoomNumber: r.RoomNumber,
		OwnerName:  r.OwnerName,
	}
}
