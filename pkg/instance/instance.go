package instance

import "os"

// GetID returns the worker instance identifier. WORKER_ID wins, then the
// hostname, then a fixed default.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
