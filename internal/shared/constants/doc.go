// Package constants centralizes defaults shared by the CLI and the API
// server: file permissions, naming and the data directory location.
package constants
