package service

type Config struct {
	// Secret signs the session cookie. Must not be empty.
	Secret string
	// Expiration is a duration string, e.g. "72h".
	Expiration string
}
