// Package config defines the explicit parameter set of the separation and
// merge pipeline: analysis sample rate, STFT and median-filter sizes, per
// stem gains, merge defaults and logging. Default returns the documented
// defaults; Load overlays a TOML file on top of them and validates the
// result.
package config
