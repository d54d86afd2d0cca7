// Package align pairs control-plane and data-plane function models that
// describe the same capability for the same service.
//
// Every (namespace, service, function type) key present on either plane
// emits exactly one pair; keys are sorted lexicographically before
// emission so output never depends on map iteration order. Multiple
// control-plane models sharing a key (a service-wide policy plus a
// version-specific override) merge field-by-field, last writer wins,
// except that version-scoped fields nest under their scope key rather
// than overwriting the service-wide value. Each merge is recorded and
// surfaces downstream as an informational note, never a failure.
package align
