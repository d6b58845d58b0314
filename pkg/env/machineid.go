package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the machine, protected by an
// application specific hash so the raw machine id isn't exposed.
// It falls back to the host name.
func MachineID() string {
	if id, err := machineid.ProtectedID("ringblk"); err == nil && len(id) >= 12 {
		return id[:12]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "rbb"
}
