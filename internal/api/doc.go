// Package api serves the query engine over HTTP with gin.
//
// Routes:
//
//	GET  /         liveness message
//	GET  /health   table status (row count, load diagnostic)
//	GET  /schema   column names and types
//	POST /query    evaluate a query
//	GET  /metrics  Prometheus metrics
//
// A POST /query body is validated against a JSON Schema, normalized by
// queryir.NormalizeJSON and evaluated against the current table snapshot.
// Each request sees exactly one snapshot even if a reload swaps it midway.
//
// Every response carries an X-Request-ID header; query responses repeat it
// in their metadata so client logs and server logs can be joined.
package api
