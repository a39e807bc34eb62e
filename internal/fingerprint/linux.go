package fingerprint

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// linuxProbes returns the probe set for Linux hosts. DMI and machine-id reads
// need no subprocess; only the CPU model falls back to /proc parsing.
func linuxProbes() []probe {
	return []probe{
		{key: "machine_id", collect: probeMachineID},
		{key: "product_uuid", collect: fileProbe("/sys/class/dmi/id/product_uuid")},
		{key: "board_serial", collect: fileProbe("/sys/class/dmi/id/board_serial")},
		{key: "cpu_id", collect: probeLinuxCPUID},
		{key: "disk_serial", collect: probeLinuxDiskSerial},
	}
}

// probeMachineID reads the systemd machine id, falling back to the dbus copy
// on systems without /etc/machine-id.
func probeMachineID(ctx context.Context, c *Collector) (string, error) {
	if id, err := c.readTrimmed("/etc/machine-id"); err == nil && id != "" {
		return id, nil
	}
	return c.readTrimmed("/var/lib/dbus/machine-id")
}

// fileProbe reads a single well-known path.
func fileProbe(path string) probeFunc {
	return func(ctx context.Context, c *Collector) (string, error) {
		return c.readTrimmed(path)
	}
}

// probeLinuxCPUID extracts a stable CPU identifier from /proc/cpuinfo. ARM
// boards expose a Serial line; x86 falls back to the model name, which is
// stable per machine though not unique across identical hardware.
func probeLinuxCPUID(ctx context.Context, c *Collector) (string, error) {
	data, err := c.readFile("/proc/cpuinfo")
	if err != nil {
		return "", err
	}

	var modelName string
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "Serial":
			if !isPlaceholder(value) {
				return value, nil
			}
		case "model name":
			if modelName == "" {
				modelName = value
			}
		}
	}

	if modelName != "" {
		return modelName, nil
	}
	return "", fmt.Errorf("no CPU identifier in /proc/cpuinfo")
}

// probeLinuxDiskSerial scans /sys/block in enumeration order, skipping
// virtual devices, and returns the first non-empty serial.
func probeLinuxDiskSerial(ctx context.Context, c *Collector) (string, error) {
	entries, err := c.readDir("/sys/block")
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		name := entry.Name()
		if isVirtualDevice(name) {
			continue
		}
		serial, err := c.readTrimmed(filepath.Join("/sys/block", name, "device", "serial"))
		if err != nil || isPlaceholder(serial) {
			continue
		}
		return serial, nil
	}
	return "", fmt.Errorf("no physical disk serial found")
}
