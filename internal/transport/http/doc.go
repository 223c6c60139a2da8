// Package http implements the HTTP handlers of the datacleaner service. It
// keeps handlers to HTTP concerns: parsing and validating requests, calling
// the session service and rendering results.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → SessionService
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// Service errors are mapped to *errors.APIError values and rendered by the
// shared error handler as RFC 7807 problem documents:
//
//	{
//	    "type": "/errors/column/conversion-failed",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "cannot convert column \"price\" from float to integer",
//	    "instance": "/api/v1/sessions/…/convert",
//	    "reason": "non_integer_float_values",
//	    "column": "price",
//	    "target": "integer"
//	}
//
// # WebSocket Support
//
// GET /ws?session={id} subscribes a client to the operation events of one
// session. The hub closes the stream when the session ends.
package http
