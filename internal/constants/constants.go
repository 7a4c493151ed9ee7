package constants

import "time"

const (
	Version        = `0.1.0`
	AppName        = `portal`
	ConfigFile     = `portal`
	ConfigFileType = `yaml`
	ConfigDir      = `/.portal/`
	EnvPrefix      = `PORTAL`

	DefaultDocsRoot    = `./docs`
	DefaultMapFile     = `docs-map.json`
	DefaultAddr        = `:8080`
	DefaultIssuer      = `portal`
	DefaultConcurrency = 8

	DefaultDebounce = 300 * time.Millisecond
	DefaultTokenTTL = 24 * time.Hour
)
