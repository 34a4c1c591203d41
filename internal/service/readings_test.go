package service

import (
    "context"
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/condo-water-billing/internal/apperr"
    "github.com/iliyamo/condo-water-billing/internal/model"
    "github.com/iliyamo/condo-water-billing/internal/queue"
    "github.com/iliyamo/condo-water-billing/internal/testutil"
)

func newReadings(t *testing.T) (*Readings, *testutil.Store, model.Room) {
    t.Helper()
    st := testutil.NewStore()
    room := st.AddRoom("101", "Alice")
    return NewReadings(st.Rooms(), st.Readings(), nil, nil, 5), st, room
}

func TestSave_ComputesAndUpserts(t *testing.T) {
    svc, st, room := newReadings(t)
    pub := &testutil.MockPublisher{}
    pub.On("Publish", testutil.EventOfType(queue.ReadingSaved)).Return(nil)
    svc.Publisher = pub
    ctx := context.Background()

    rd, err := svc.Save(ctx, "admin", SaveInput{RoomID: json.Number("1"), Month: "2024-01",
        LastMonth: json.Number("100"), ThisMonth: "130"})
    require.NoError(t, err)
    assert.Equal(t, 30.0, rd.Usage)
    assert.Equal(t, 5.0, rd.PricePerUnit, "default unit price")
    assert.Equal(t, 150.0, rd.TotalPrice)
    assert.False(t, rd.NegativeUsage)

    again, err := svc.Save(ctx, "admin", SaveInput{RoomID: float64(room.ID), Month: "2024-01",
        LastMonth: 100.0, ThisMonth: 140.0, PricePerUnit: 2.5})
    require.NoError(t, err)
    assert.Equal(t, rd.ID, again.ID, "same room and month is overwritten")
    assert.Equal(t, 100.0, again.TotalPrice)
    assert.Len(t, st.ReadingsOf("2024-01"), 1)

    require.Len(t, pub.Calls, 2)
    ev := pub.Calls[0].Arguments.Get(0).(queue.BillingEvent)
    assert.Equal(t, "admin", ev.Actor)
    assert.Equal(t, room.ID, ev.RoomID)
    assert.Equal(t, 150.0, ev.TotalPrice)
}

func TestSave_NegativeUsageIsFlagged(t *testing.T) {
    svc, _, room := newReadings(t)
    rd, err := svc.Save(context.Background(), "admin", SaveInput{RoomID: room.ID, Month: "2024-01",
        LastMonth: 50.0, ThisMonth: 40.0})
    require.NoError(t, err)
    assert.True(t, rd.NegativeUsage)
    assert.Equal(t, -10.0, rd.Usage)
    assert.Equal(t, -50.0, rd.TotalPrice)
}

func TestSave_Validation(t *testing.T) {
    svc, st, room := newReadings(t)
    cases := []struct {
        name string
        in   SaveInput
        code string
    }{
        {"missing room", SaveInput{Month: "2024-01"}, "MISSING_ROOM_ID"},
        {"zero room", SaveInput{RoomID: 0.0, Month: "2024-01"}, "MISSING_ROOM_ID"},
        {"zero room text", SaveInput{RoomID: "0", Month: "2024-01"}, "MISSING_ROOM_ID"},
        {"missing month", SaveInput{RoomID: room.ID}, "MISSING_MONTH"},
        {"month 13", SaveInput{RoomID: room.ID, Month: "2024-13"}, "INVALID_MONTH_FORMAT"},
        {"short year", SaveInput{RoomID: room.ID, Month: "24-01"}, "INVALID_MONTH_FORMAT"},
        {"slash", SaveInput{RoomID: room.ID, Month: "2024/01"}, "INVALID_MONTH_FORMAT"},
        {"padded month", SaveInput{RoomID: room.ID, Month: " 2024-01"}, "INVALID_MONTH_FORMAT"},
        {"trailing newline", SaveInput{RoomID: room.ID, Month: "2024-01\n", ThisMonth: 10.0}, "INVALID_MONTH_FORMAT"},
        {"room id text", SaveInput{RoomID: "abc", Month: "2024-01"}, "INVALID_ROOM_ID"},
        {"room id fraction", SaveInput{RoomID: 1.5, Month: "2024-01"}, "INVALID_ROOM_ID"},
        {"unknown room", SaveInput{RoomID: uint64(99), Month: "2024-01"}, "ROOM_NOT_FOUND"},
        {"text meter", SaveInput{RoomID: room.ID, Month: "2024-01", ThisMonth: "lots"}, "INVALID_THIS_MONTH"},
        {"empty previous", SaveInput{RoomID: room.ID, Month: "2024-01", LastMonth: ""}, "INVALID_LAST_MONTH"},
        {"negative price", SaveInput{RoomID: room.ID, Month: "2024-01", PricePerUnit: -1.0}, "INVALID_PRICE_PER_UNIT"},
        {"bool meter", SaveInput{RoomID: room.ID, Month: "2024-01", ThisMonth: true}, "INVALID_THIS_MONTH"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            _, err := svc.Save(context.Background(), "admin", tc.in)
            assert.Equal(t, tc.code, apperr.CodeOf(err))
        })
    }
    assert.Zero(t, st.Writes)
}

func TestUpdate_KeepsOmittedFields(t *testing.T) {
    svc, st, room := newReadings(t)
    seeded := st.AddReading(model.Reading{RoomID: room.ID, Month: "2024-01", LastMonth: 100, ThisMonth: 130, Usage: 30, PricePerUnit: 5, TotalPrice: 150})

    rd, err := svc.Update(context.Background(), "admin", seeded.ID, ReadingPatch{ThisMonth: json.Number("150")})
    require.NoError(t, err)
    assert.Equal(t, 100.0, rd.LastMonth)
    assert.Equal(t, 50.0, rd.Usage)
    assert.Equal(t, 250.0, rd.TotalPrice)

    stored, err := st.Readings().GetByID(context.Background(), seeded.ID)
    require.NoError(t, err)
    assert.Equal(t, 250.0, stored.TotalPrice)
}

func TestUpdate_Errors(t *testing.T) {
    svc, st, room := newReadings(t)
    seeded := st.AddReading(model.Reading{RoomID: room.ID, Month: "2024-01", PricePerUnit: 5})

    _, err := svc.Update(context.Background(), "admin", 999, ReadingPatch{})
    assert.Equal(t, "NOT_FOUND", apperr.CodeOf(err))

    _, err = svc.Update(context.Background(), "admin", seeded.ID, ReadingPatch{PricePerUnit: "five"})
    assert.Equal(t, "INVALID_PRICE_PER_UNIT", apperr.CodeOf(err))
}

func TestDelete(t *testing.T) {
    svc, st, room := newReadings(t)
    seeded := st.AddReading(model.Reading{RoomID: room.ID, Month: "2024-01", PricePerUnit: 5})

    rd, err := svc.Delete(context.Background(), "admin", seeded.ID)
    require.NoError(t, err)
    assert.Equal(t, seeded.ID, rd.ID)

    _, err = svc.Delete(context.Background(), "admin", seeded.ID)
    assert.Equal(t, "NOT_FOUND", apperr.CodeOf(err))
}

func TestSummary(t *testing.T) {
    svc, st, room := newReadings(t)
    bob := st.AddRoom("102", "Bob")
    st.AddReading(model.Reading{RoomID: room.ID, Month: "2024-01", LastMonth: 100, ThisMonth: 130, Usage: 30, PricePerUnit: 5, TotalPrice: 150})
    st.AddReading(model.Reading{RoomID: bob.ID, Month: "2024-01", LastMonth: 200, ThisMonth: 240, Usage: 40, PricePerUnit: 5, TotalPrice: 200})

    sum, err := svc.Summary(context.Background(), "2024-01")
    require.NoError(t, err)
    assert.Equal(t, 70.0, sum.TotalUsage)
    assert.Equal(t, 350.0, sum.TotalRevenue)
    assert.Equal(t, 35.0, sum.AverageUsage)
    assert.Equal(t, 175.0, sum.AveragePrice)
    assert.Equal(t, 2, sum.TotalRooms)
    assert.Equal(t, "Bob", sum.MaxUsage.OwnerName)
    assert.Equal(t, "Alice", sum.MinUsage.OwnerName)

    _, err = svc.Summary(context.Background(), "2024-02")
    assert.Equal(t, "NO_READINGS_FOUND", apperr.CodeOf(err))
    _, err = svc.Summary(context.Background(), "")
    assert.Equal(t, "MISSING_MONTH", apperr.CodeOf(err))
    _, err = svc.Summary(context.Background(), "2024-1")
    assert.Equal(t, "INVALID_MONTH_FORMAT", apperr.CodeOf(err))
}

func TestListByMonth(t *testing.T) {
    svc, _, _ := newReadings(t)
    _, err := svc.ListByMonth(context.Background(), "")
    assert.Equal(t, "MISSING_PARAMETER", apperr.CodeOf(err))

    out, err := svc.ListByMonth(context.Background(), "2024-05")
    require.NoError(t, err)
    assert.Empty(t, out)
}

func TestImport(t *testing.T) {
    svc, st, room := newReadings(t)
    st.AddRoom("A-2", "Dan")
    pub := &testutil.MockPublisher{}
    pub.On("Publish", mock.MatchedBy(func(ev queue.BillingEvent) bool {
        return ev.Type == queue.ReadingsImported && ev.Count == 2 && ev.Failed == 2
    })).Return(nil).Once()
    svc.Publisher = pub

    rows := []map[string]string{
        {"roomNumber": "101", "lastMonth": "100", "thisMonth": "130", "pricePerUnit": ""},
        {"roomNumber": "a-2", "lastMonth": "", "thisMonth": "12.5", "pricePerUnit": "4"},
        {"roomNumber": "", "thisMonth": "10"},
        {"roomNumber": "103", "thisMonth": ""},
        {"roomNumber": "999", "thisMonth": "5"},
        {"roomNumber": "101", "lastMonth": "x", "thisMonth": "140"},
    }
    res, err := svc.Import(context.Background(), "admin", "2024-03", rows)
    require.NoError(t, err)
    assert.Equal(t, 2, res.Imported)
    assert.Equal(t, 2, res.Failed)
    assert.Equal(t, 2, res.Skipped)
    require.Len(t, res.Errors, 2)
    assert.Contains(t, res.Errors[0], "line 6")
    assert.Contains(t, res.Errors[1], "line 7")
    for _, e := range res.Errors {
        assert.Regexp(t, `\([A-Z_]+\)$`, e, "each failure names its code")
    }

    rd, err := st.Readings().GetByRoomAndMonth(context.Background(), room.ID, "2024-03")
    require.NoError(t, err)
    assert.Equal(t, 150.0, rd.TotalPrice)
    assert.Len(t, st.ReadingsOf("2024-03"), 2)
    pub.AssertExpectations(t)
}

func TestImport_RejectsBadMonth(t *testing.T) {
    svc, _, _ := newReadings(t)
    _, err := svc.Import(context.Background(), "admin", "2024/03", nil)
    assert.Equal(t, "INVALID_MONTH_FORMAT", apperr.CodeOf(err))
}
