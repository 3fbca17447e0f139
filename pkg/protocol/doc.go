/*
Package protocol implements the length-prefixed binary envelope and
message payloads clients speak to pkg/server (spec.md §6).

# Envelope

Each frame is: a one-byte type (TypeQuery, TypeResponse, or TypeError),
a length-prefixed query_id string, and a length-prefixed payload.
WriteEnvelope/ReadEnvelope (envelope.go) implement this framing over
any io.ReadWriter with encoding/binary, the way the teacher's
pkg/api framed its own length-prefixed gRPC-adjacent messages before
this spec's protobuf/grpc dependency was dropped (see DESIGN.md).

# Payloads

Query/Response/Error (messages.go) are the JSON-coded substitute for
spec.md §6's protocol-buffer-encoded payload: this repository has no
generated .pb.go messages to send over the wire (protoc cannot be run
as part of this exercise), so the payload is the same logical shape
carried as JSON instead. WireValue mirrors pkg/storage's tagged JSON
envelope for value.Value (kept as its own type here rather than
imported, since storage's wireValue is storage-package-private and the
wire-protocol encoding is a distinct concern from the on-disk one, even
though today they happen to agree in shape).
*/
package protocol
