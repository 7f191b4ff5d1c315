// Package config defines the sessguard-server configuration structure.
//
// The structure is split across files by concern:
//
//   - spec.go: the configuration schema with koanf tags
//   - default.go: default values
//   - verify.go: startup validation
//   - sanitize.go: secret masking for safe logging
package config
