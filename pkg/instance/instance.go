package instance

import "os"

// GetID identifies this process in logs: the platform dyno or container
// hostname, falling back to "local".
func GetID() string {
	for _, key := range []string{"DYNO", "STOREFRONT_INSTANCE_ID", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
