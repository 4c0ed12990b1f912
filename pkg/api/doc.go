// Package api defines the wire types and the structured error model for the
// bookstore catalog service.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Every failure that reaches a client is expressed as an
// [APIError]; every successful response is wrapped in a [SuccessResponse].
//
// Core types:
//   - [APIError]: status, message, machine code, operational flag and details
//   - [ErrorResponse]: the JSON body written for any failure
//   - [SuccessResponse]: the JSON envelope written for any 2xx response
//   - [User], [Author], [Book], [BookRecord]: catalog entities
package api
