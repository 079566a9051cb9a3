package tokenstore

// Credentials is the access/refresh pair persisted between runs. It is owned
// exclusively by the store and mutated only through explicit set/clear calls.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store is a durable holder for the current credential pair. Operations are
// synchronous and never fail upward: backend trouble is logged by the
// implementation and an unreadable or empty store reads as absent.
type Store interface {
	// Get returns the stored pair, or ok=false when the store is empty.
	Get() (Credentials, bool)
	// Set persists the pair, replacing any previous one.
	Set(creds Credentials)
	// SetAccessToken replaces only the access slot, keeping the refresh token.
	SetAccessToken(token string)
	// Clear removes both slots.
	Clear()
}
