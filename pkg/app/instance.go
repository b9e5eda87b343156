package app

import "os"

// InstanceID names this replica in logs: the Heroku dyno, an explicit
// WORKER_ID, the hostname, or "local".
func InstanceID() string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
