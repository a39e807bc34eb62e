// Package license is the top-level client facade. It wires device
// fingerprinting, the HTTP transport with request signing, and the
// session manager into a single Client that applications use to
// activate a license and keep the session valid.
//
// Typical usage:
//
//	client, err := license.NewClient(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := client.Activate(ctx, licenseKey); err != nil {
//	    return err
//	}
//	// later, before any protected call:
//	if err := client.EnsureValid(ctx); err != nil {
//	    return err
//	}
//
// The package also provides health reporting for the license subsystem
// and an OpenTelemetry recorder for session operation metrics.
package license
