package models

import (
	"time"
)

// User represents a registered account. Firstname/lastname/email are the
// display fields other parties see on a deal.
type User struct {
	Base         `bson:",inline"`
	Firstname    string    `bson:"firstname" json:"firstname"`
	Lastname     string    `bson:"lastname" json:"lastname"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password" json:"-"` // Store hash, not plaintext
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FullName is used in emails addressed to the user.
func (u *User) FullName() string {
	if u.Lastname == "" {
		return u.Firstname
	}
	return u.Firstname + " " + u.Lastname
}

// Counterpart is the denormalized view of the other party on a deal.
type Counterpart struct {
	Firstname string `bson:"firstname" json:"firstname"`
	Lastname  string `bson:"lastname" json:"lastname"`
	Email     string `bson:"email" json:"email"`
}
