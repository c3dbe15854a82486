package domain

// TokenPair holds the two session tokens issued at login and rotated
// on refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Credentials is the raw session material extracted from an incoming
// request before validation.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}
