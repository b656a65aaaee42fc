package config

import "time"

// HTTP client limits
const (
	MaxResponseBodyBytes = 10 << 20
)

// Demo server timeouts
const (
	DemoReadTimeout  = 15 * time.Second
	DemoWriteTimeout = 30 * time.Second
	DemoIdleTimeout  = 120 * time.Second
)

// Default state file name, resolved under the user config directory when
// CRM_STATE_FILE is not set.
const DefaultStateFileName = "crm-console/state.json"
