package models

// User represents the locally authenticated account. Authentication is a
// local mock: the id is derived from the email (or generated for social
// sign-in) and no credential is ever verified against a backend.
type User struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	HasCompletedOnboarding bool   `json:"hasCompletedOnboarding"`
	IsPremium              bool   `json:"isPremium"`
}

// Membership tier labels shown on the profile screen.
const (
	TierStandard = "Standard Collector"
	TierPrive    = "ScentIQ Privé"
)

// Tier returns the display label for the user's membership tier.
func (u *User) Tier() string {
	if u.IsPremium {
		return TierPrive
	}
	return TierStandard
}
