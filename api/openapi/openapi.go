// Package openapi embeds the OpenAPI document of the user API.
package openapi

import _ "embed"

// FileName is the name the document is served under.
const FileName = "user.swagger.json"

// Document is the Swagger 2.0 description of the /api routes.
//
//go:embed user.swagger.json
var Document []byte
