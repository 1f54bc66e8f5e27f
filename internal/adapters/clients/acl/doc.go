// Package acl is the anti-corruption layer between the promptlib core and the
// persistence collaborator's REST API.
//
// External DTOs stay unexported in this package. Identifiers arrive as JSON
// numbers or strings and leave as opaque strings. Responses are validated
// before domain values are built.
//
// Failures map onto domain errors:
//   - 404 → [domain.ErrNotFound]
//   - 409 → [domain.ErrConflict]
//   - 400/422 → [domain.ErrValidation], with the first field error when present
//   - 401/403 → [domain.ErrForbidden]
//   - 429, 5xx, transport errors and malformed bodies → [domain.ErrUnavailable]
//
// [clients.ErrCircuitOpen] and [clients.ErrMaxRetriesExceeded] are reported
// as [domain.ErrUnavailable] as well.
package acl
