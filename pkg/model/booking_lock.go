package model

import "time"

// BookingLock is an advisory lock document serializing admissions for one owner.
// The _id is derived from the owner so only one holder can exist at a time.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
