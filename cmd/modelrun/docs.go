package main

// General API documentation for swaggo. Builds with -tags=swagger serve the UI,
// but /swagger/doc.json stays 503 until the spec is generated and registered:
//
//	swag init -g cmd/modelrun/docs.go -o cmd/modelrun/apidocs
//
// then blank-import modelrun/cmd/modelrun/apidocs from a swagger-tagged file in
// this package.
//
// @title           modelrun planning API
// @version         1.0
// @description     Read-only HTTP API exposing the catalog, GPU free memory and launch plans.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
