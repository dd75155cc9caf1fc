package domain

import "time"

// Strategy groups the journal of one trading approach for one owner.
// Corresponds to the strategies table.
type Strategy struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol,omitempty"`   // default replay symbol
	Interval    string    `json:"interval,omitempty"` // default replay interval
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
