// Package lifecycle holds shared start/stop constants.
package lifecycle

import "time"

// DefaultTimeout bounds fx OnStart/OnStop hooks that touch external systems.
const DefaultTimeout = 10 * time.Second
