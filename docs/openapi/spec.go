// Package openapi embeds the service's OpenAPI document for runtime
// distribution.
package openapi

import _ "embed"

// loggerSpec contains the OpenAPI description of the data logger HTTP API.
//
//go:embed datalogger.yaml
var loggerSpec []byte

// Spec returns a defensive copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), loggerSpec...)
}
