package jwt

type Role int

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Member is the token subject: a dashboard agent or site owner. Guests
// never hold JWTs; they authenticate with a thread secret.
type Member struct {
	Id    int64  `json:"id"`
	Email string `json:"email"`
}
