package models

// User represents a locally provisioned user account, linked to the external
// identity provider through ProviderID.
type User struct {
	ID          int64  `json:"id"`
	ProviderID  string `json:"-"` // subject id asserted by the identity provider
	Username    string `json:"username"`
	Email       string `json:"-"` // Never expose this to the client
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// UserProfile is the public projection of a user. It never carries the numeric
// id, the email, or the provider subject id.
type UserProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

// Profile returns the public projection of the user.
func (u User) Profile() UserProfile {
	return UserProfile{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
