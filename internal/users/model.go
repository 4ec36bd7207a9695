package users

import "time"

// User is a creator/seller account keyed by external OAuth identity.
// Payout fields are mutated only by settlement and the status synchronizer.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	PictureURL      string    `json:"pictureUrl"`
	Country         string    `json:"country"`
	StripeAccountID string    `json:"-"`
	PayoutsEnabled  bool      `json:"payoutsEnabled"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasPayoutAccount reports whether onboarding has produced a payout account.
func (u User) HasPayoutAccount() bool {
	return u.StripeAccountID != ""
}
