package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/condo-water-billing/internal/model"
)

func row(roomID uint64, number string, usage, total float64) model.RoomReading {
	return model.RoomReading{
		Reading:    model.Reading{RoomID: roomID, Usage: usage, TotalPrice: total},
		RoomNumber: number,
		OwnerName:  "owner " + number,
	}
}

func TestSummarize_KnownSet(t *testing.T) {
	s, err := Summarize("2024-05", []model.RoomReading{
		row(1, "101", 30, 150),
		row(2, "102", 40, 200),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05", s.Month)
	assert.Equal(t, 2, s.TotalRooms)
	assert.Equal(t, 2, s.ReadingsCount)
	assert.Equal(t, 70.0, s.TotalUsage)
	assert.Equal(t, 350.0, s.TotalRevenue)
	assert.Equal(t, 35.0, s.AverageUsage)
	assert.Equal(t, 175.0, s.AveragePrice)
	assert.Equal(t, UsageRecord{Usage: 40, RoomID: 2, RoomNumber: "102", OwnerName: "owner 102"}, s.MaxUsage)
	assert.Equal(t, 30.0, s.MinUsage.Usage)
	assert.Equal(t, uint64(1), s.MinUsage.RoomID)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize("2024-05", nil)
	assert.ErrorIs(t, err, ErrNoReadings)
}

func TestSummarize_TiesKeepFirst(t *testing.T) {
	s, err := Summarize("2024-05", []model.RoomReading{
		row(7, "301", 20, 100),
		row(3, "201", 20, 100),
		row(5, "202", 20, 100),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), s.MaxUsage.RoomID)
	assert.Equal(t, uint64(7), s.MinUsage.RoomID)
}

func TestSummarize_AveragesUseDistinctRooms(t *testing.T) {
	// A room appearing twice is counted once in the denominator.
	s, err := Summarize("2024-05", []model.RoomReading{
		row(1, "101", 10, 50),
		row(1, "101", 20, 100),
		row(2, "102", 5, 25.555),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalRooms)
	assert.Equal(t, 3, s.ReadingsCount)
	assert.Equal(t, 17.5, s.AverageUsage)
	assert.Equal(t, 175.56, s.TotalRevenue)
	assert.Equal(t, 87.78, s.AveragePrice)
}
