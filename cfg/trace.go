package cfg

// TraceAgent holds trace agent configuration.
type TraceAgent struct {
	Addr Addr
}

// Validate .
func (t TraceAgent) Validate() error {
	return t.Addr.validate("trace agent")
}
