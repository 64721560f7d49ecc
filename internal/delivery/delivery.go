// Package delivery contains the entry points that drive the application:
// the HTTP API and the background cleanup worker.
package delivery

import "context"

// Delivery is a long-running entry point started by the application.
type Delivery interface {
	// Serve blocks until the delivery stops or fails.
	Serve(ctx context.Context) error
}
