// Package queue defines the billing audit events exchanged over RabbitMQ and
// the consumer that turns them into an append-only audit log.
package queue

import (
    "fmt"
    "strings"
    "time"
)

// Event types published by the billing services.
const (
    ReadingSaved     = "reading.saved"
    ReadingUpdated   = "reading.updated"
    ReadingDeleted   = "reading.deleted"
    ReadingsRolled   = "readings.rolled_over"
    ReadingsImported = "readings.imported"
)

// BillingEvent is published after every successful billing write.  It carries
// enough information for the audit trail without querying the database.
// Zero-valued fields are irrelevant for the event type and omitted.
type BillingEvent struct {
    Type       string  `json:"type"`
    Actor      string  `json:"actor"`
    Month      string  `json:"month,omitempty"`
    FromMonth  string  `json:"from_month,omitempty"`
    ToMonth    string  `json:"to_month,omitempty"`
    RoomID     uint64  `json:"room_id,omitempty"`
    ReadingID  uint64  `json:"reading_id,omitempty"`
    Count      int     `json:"count,omitempty"`
    Inserted   int     `json:"inserted,omitempty"`
    Updated    int     `json:"updated,omitempty"`
    Failed     int     `json:"failed,omitempty"`
    TotalPrice float64 `json:"total_price,omitempty"`
    OccurredAt string  `json:"occurred_at"`
}

// NewEvent stamps an event of the given type with the current UTC time.
func NewEvent(typ, actor string) BillingEvent {
    return BillingEvent{Type: typ, Actor: actor, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}

// AuditLine renders the event as a single human-friendly log line.
func (ev BillingEvent) AuditLine() string {
    parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt, ev.Type), "actor=" + ev.Actor}
    add := func(k string, v any, present bool) {
        if present {
            parts = append(parts, fmt.Sprintf("%s=%v", k, v))
        }
    }
    add("month", ev.Month, ev.Month != "")
    add("from", ev.FromMonth, ev.FromMonth != "")
    add("to", ev.ToMonth, ev.ToMonth != "")
    add("room_id", ev.RoomID, ev.RoomID != 0)
    add("reading_id", ev.ReadingID, ev.ReadingID != 0)
    add("count", ev.Count, ev.Count != 0)
    add("inserted", ev.Inserted, ev.Inserted != 0)
    add("updated", ev.Updated, ev.Updated != 0)
    add("failed", ev.Failed, ev.Failed != 0)
    add("total", fmt.Sprintf("%.2f", ev.TotalPrice), ev.TotalPrice != 0)
    return strings.Join(parts, " | ") + "\n"
}
