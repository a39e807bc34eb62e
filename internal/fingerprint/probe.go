package fingerprint

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner executes an external diagnostic command and returns its
// captured stdout. Implementations must honor context cancellation.
// Tests inject deterministic fakes.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs real OS commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return string(out), nil
}

// FileReader reads a well-known path. Split out so probes over /sys and /etc
// can be exercised against fixture trees in tests.
type FileReader func(path string) ([]byte, error)

// DirReader lists a directory. Used by the disk serial probe to enumerate
// block devices; tests inject fixture listings.
type DirReader func(path string) ([]os.DirEntry, error)

// probeFunc collects a single component value. A returned error or an empty
// string both degrade to an absent component.
type probeFunc func(ctx context.Context, c *Collector) (string, error)

// probe pairs a fixed component key with its collection function.
type probe struct {
	key     string
	collect probeFunc
}

// runProbe executes one probe under its own timeout and normalizes the
// outcome: placeholder and empty values become absent.
func (c *Collector) runProbe(ctx context.Context, p probe) string {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := p.collect(probeCtx, c)
	if err != nil {
		return ""
	}

	value = strings.TrimSpace(value)
	if isPlaceholder(value) {
		return ""
	}
	return value
}

// zeroGUID is the all-zero GUID emitted by firmware without a programmed UUID.
const zeroGUID = "00000000-0000-0000-0000-000000000000"

// vendorPlaceholders are sentinel strings that identify nothing. Matched
// case-insensitively against the trimmed probe output.
var vendorPlaceholders = []string{
	"to be filled by o.e.m.",
	"default string",
	"system serial number",
	"none",
}

// isPlaceholder reports whether a probe value is a known sentinel rather than
// a real identifier.
func isPlaceholder(value string) bool {
	if value == "" {
		return true
	}
	lower := strings.ToLower(value)
	if lower == strings.ToLower(zeroGUID) {
		return true
	}
	for _, p := range vendorPlaceholders {
		if lower == p {
			return true
		}
	}
	return false
}

// virtualDevicePrefixes name block devices that are not physical disks and
// must be skipped during serial enumeration.
var virtualDevicePrefixes = []string{"loop", "ram", "dm-", "zram", "sr", "fd", "md"}

// isVirtualDevice reports whether a block device name matches a known
// virtual-device prefix.
func isVirtualDevice(name string) bool {
	for _, prefix := range virtualDevicePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// firstDataLine returns the first non-empty line after the header of tabular
// command output (wmic style), skipping placeholder values.
func firstDataLine(output string) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 {
			continue // header row
		}
		value := strings.TrimSpace(line)
		if !isPlaceholder(value) {
			return value
		}
	}
	return ""
}

// defaultTimeout bounds a single probe when no configuration is supplied.
const defaultTimeout = 5 * time.Second

// readTrimmed reads a file through the collector's reader and trims the
// content to a single line value.
func (c *Collector) readTrimmed(path string) (string, error) {
	data, err := c.readFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
