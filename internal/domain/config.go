package domain

// Config is the user-facing configuration record. It is persisted and
// retrieved verbatim by the backend.
type Config struct {
	EnableGlass bool `json:"enableGlass"`
}

// DefaultConfig returns the record used before any configuration was stored.
func DefaultConfig() Config {
	return Config{EnableGlass: true}
}
