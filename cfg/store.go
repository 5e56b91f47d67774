package cfg

// Store holds store configuration.
type Store struct {
	Addr     Addr
	Password string
}

func (s Store) validate() error {
	return s.Addr.validate("store")
}
