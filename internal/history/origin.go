package history

import (
	"os"

	"github.com/shirou/gopsutil/v3/host"
)

// OriginHost names the machine a fetch was started from.
func OriginHost() string {
	info, err := host.Info()
	if err == nil && info.Hostname != "" {
		return info.Hostname
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
