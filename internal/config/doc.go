// Package config loads, normalizes, and validates Sluice configuration.
//
// Configuration is TOML with a single file resolved from --config, then
// ~/.config/sluice/config.toml, then ./sluice.toml. Defaults cover every
// setting so a missing file is not an error; validation runs after
// normalization and reports the first unusable value with a hint.
package config
