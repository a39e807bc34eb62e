// Package fingerprint derives a stable device identity for license binding.
//
// A Collector runs the probe set for the current OS family, producing a
// mapping of named hardware components to identifier values. Probes that fail,
// time out, or return known vendor placeholders leave their component absent;
// collection itself never fails. The mapping is reduced to a deterministic
// 256-bit identity string by Hash.
//
// # Probe sets
//
// Exactly one probe set is selected at construction time:
//
//	windows  machine GUID, processor ID, BIOS/baseboard serials, disk serial
//	darwin   IOPlatform UUID and serial, CPU brand, hardware model
//	linux    machine-id, DMI product UUID, board serial, CPU model, disk serial
//	fallback machine name, user name, OS string, CPU count, 64-bit flag
//
// The fallback set uses only values available from the runtime environment.
// It is weaker than hardware serials but guarantees the mapping is never
// empty on unrecognized platforms.
//
// # Determinism
//
// Hash sorts component keys lexicographically before digesting, so two runs
// that collect the same present components in different enumeration order
// produce the same identity. There is no minimum component quorum: a degraded
// mapping still hashes to a valid identity and the server decides how much
// drift to tolerate.
package fingerprint
