package fingerprint

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
)

// fallbackProbes returns the universal probe set used when the OS family is
// unrecognized. Every value comes from the runtime environment, so the
// mapping is never empty, at the cost of being less stable than hardware
// serials.
func fallbackProbes() []probe {
	return []probe{
		{key: "machine_name", collect: probeMachineName},
		{key: "user_name", collect: probeUserName},
		{key: "os_version", collect: probeOSVersion},
		{key: "cpu_count", collect: probeCPUCount},
		{key: "is_64bit", collect: probe64Bit},
	}
}

func probeMachineName(ctx context.Context, c *Collector) (string, error) {
	return os.Hostname()
}

func probeUserName(ctx context.Context, c *Collector) (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username, nil
	}
	// user.Current can fail in minimal containers; environment is good enough
	// for a weak component.
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return os.Getenv("USERNAME"), nil
}

func probeOSVersion(ctx context.Context, c *Collector) (string, error) {
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

func probeCPUCount(ctx context.Context, c *Collector) (string, error) {
	return strconv.Itoa(runtime.NumCPU()), nil
}

func probe64Bit(ctx context.Context, c *Collector) (string, error) {
	is64 := strings.Contains(runtime.GOARCH, "64")
	return strconv.FormatBool(is64), nil
}
