// Package docs provides generated OpenAPI documentation for the read-only
// status surface.
//
// hpcledger status API
//
//	@title			hpcledger status API
//	@version		1.0
//	@description	Read-only status surface for the job/learner reconciliation ledger.
//
//	@license.name	MIT
//
//	@host		localhost:8911
//	@BasePath	/
//
//	@schemes	http
package docs

//go:generate swag init -g ../internal/statusapi/server.go -o ./swagger --parseDependency --parseInternal
