package cfg

// NATS holds nats configuration.
type NATS struct {
	Addr Addr
}

func (n NATS) validate() error {
	return n.Addr.validate("nats")
}
