package instance

import "os"

const fallbackID = "local"

// GetID names the running process for logs and lock holders. WORKER_ID wins
// over the platform dyno name, which wins over the hostname.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
