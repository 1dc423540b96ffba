// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata, set at link time with
// -X github.com/papercomputeco/circuitchat/pkg/utils.Version=...
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
