package billing

import "github.com/iliyamo/condo-water-billing/internal/model"

// CarryForward builds the target-month reading for the room of src.  The
// previous meter value becomes src.ThisMonth, the unit price is kept, and
// the current value, usage and total start at zero because the new month
// has no meter value yet.  Identity and timestamps are left for the store.
func CarryForward(src model.Reading, toMonth string) model.Reading {
	return model.Reading{
		RoomID:       src.RoomID,
		Month:        toMonth,
		LastMonth:    src.ThisMonth,
		ThisMonth:    0,
		Usage:        0,
		PricePerUnit: src.PricePerUnit,
		TotalPrice:   0,
	}
}
