package config

// ConfigInitError reports a config that loads but cannot drive the portal.
type ConfigInitError struct {
	msg string
}

func (e *ConfigInitError) Error() string {
	return e.msg
}
