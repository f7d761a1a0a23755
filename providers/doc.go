// Package providers contains the built-in carrier adapters.
//
// Each subpackage implements core.Adapter for one carrier and exposes a
// Register function that installs it into a core.AdapterRegistry with its
// static channel set.
package providers
