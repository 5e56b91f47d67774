package cfg

// MQTT holds mqtt broker configuration.
type MQTT struct {
	Addr Addr
}

func (m MQTT) validate() error {
	return m.Addr.validate("mqtt")
}
