package models

import "time"

// Hostel is a catalog entry owned by a custodian.
type Hostel struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CustodianID string    `db:"custodian_id" json:"custodian_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
