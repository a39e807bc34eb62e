package fingerprint

import (
	"context"
	"fmt"
	"strings"
)

// windowsProbes returns the probe set for Windows hosts. All queries go
// through reg.exe and wmic so no cgo or registry bindings are needed.
func windowsProbes() []probe {
	return []probe{
		{key: "machine_guid", collect: probeMachineGUID},
		{key: "cpu_id", collect: probeWindowsCPUID},
		{key: "bios_serial", collect: wmicProbe("bios", "SerialNumber")},
		{key: "baseboard_serial", collect: wmicProbe("baseboard", "SerialNumber")},
		{key: "product_uuid", collect: wmicProbe("csproduct", "UUID")},
		{key: "disk_serial", collect: probeWindowsDiskSerial},
	}
}

// probeMachineGUID reads the cryptography machine GUID the installer wrote at
// OS setup. It survives reinstalling applications but not the OS itself.
func probeMachineGUID(ctx context.Context, c *Collector) (string, error) {
	out, err := c.run.Run(ctx, "reg", "query",
		`HKLM\SOFTWARE\Microsoft\Cryptography`, "/v", "MachineGuid")
	if err != nil {
		return "", err
	}

	// Output format:
	//   HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Cryptography
	//       MachineGuid    REG_SZ    xxxxxxxx-xxxx-...
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "MachineGuid") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			return fields[len(fields)-1], nil
		}
	}
	return "", fmt.Errorf("MachineGuid not present in reg output")
}

func probeWindowsCPUID(ctx context.Context, c *Collector) (string, error) {
	out, err := c.run.Run(ctx, "wmic", "cpu", "get", "ProcessorId")
	if err != nil {
		return "", err
	}
	return firstDataLine(out), nil
}

// wmicProbe builds a probe reading a single wmic class property.
func wmicProbe(class, property string) probeFunc {
	return func(ctx context.Context, c *Collector) (string, error) {
		out, err := c.run.Run(ctx, "wmic", class, "get", property)
		if err != nil {
			return "", err
		}
		return firstDataLine(out), nil
	}
}

// probeWindowsDiskSerial scans physical drives in enumeration order and
// returns the first usable serial.
func probeWindowsDiskSerial(ctx context.Context, c *Collector) (string, error) {
	out, err := c.run.Run(ctx, "wmic", "diskdrive", "get", "SerialNumber")
	if err != nil {
		return "", err
	}
	return firstDataLine(out), nil
}
