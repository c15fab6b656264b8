// Package config holds pretender's process configuration and its loader.
//
// Values are layered, later sources winning:
//
//  1. defaults from Default()
//  2. an optional YAML file
//  3. PRETENDER_* environment variables, "__" separating nested keys
//     (PRETENDER_UPSTREAM__TIMEOUT=5s)
//  4. explicit overrides, normally set from command line flags
//
// The merged result is validated before use. The rule file that drives
// mocking is separate and handled by package rules.
package config
