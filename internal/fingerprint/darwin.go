package fingerprint

import (
	"context"
	"fmt"
	"strings"
)

// darwinProbes returns the probe set for macOS hosts, backed by ioreg and
// sysctl.
func darwinProbes() []probe {
	return []probe{
		{key: "platform_uuid", collect: ioregProbe("IOPlatformUUID")},
		{key: "platform_serial", collect: ioregProbe("IOPlatformSerialNumber")},
		{key: "cpu_brand", collect: sysctlProbe("machdep.cpu.brand_string")},
		{key: "hw_model", collect: sysctlProbe("hw.model")},
	}
}

// ioregProbe extracts a quoted property from the IOPlatformExpertDevice node.
func ioregProbe(property string) probeFunc {
	return func(ctx context.Context, c *Collector) (string, error) {
		out, err := c.run.Run(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice")
		if err != nil {
			return "", err
		}

		// Lines look like: "IOPlatformUUID" = "XXXX-..."
		for _, line := range strings.Split(out, "\n") {
			if !strings.Contains(line, `"`+property+`"`) {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			return strings.Trim(strings.TrimSpace(parts[1]), `"`), nil
		}
		return "", fmt.Errorf("%s not present in ioreg output", property)
	}
}

func sysctlProbe(key string) probeFunc {
	return func(ctx context.Context, c *Collector) (string, error) {
		return c.run.Run(ctx, "sysctl", "-n", key)
	}
}
