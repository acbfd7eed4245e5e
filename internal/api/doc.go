// Package api contains the HTTP handlers, request/response models and
// error mapping for the REST API. The JSON field names of the models are
// the wire contract and must not change.
package api
