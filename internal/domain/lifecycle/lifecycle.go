// Package lifecycle holds shared settings for start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds every start/stop hook (DB ping, migrations, server shutdown).
const DefaultTimeout = 15 * time.Second
