// Package wire implements the symmetric, language-neutral codec for the
// claim/release socket protocol: tagged request and reply variants
// serialised with MessagePack, a schemaless encoding with no
// source-ecosystem-specific type tags, framed with a 4-byte big-endian
// length prefix.
package wire

import "github.com/jackzampolin/hpcledger/internal/ledger"

// RequestKind discriminates the two request shapes a worker can send.
type RequestKind string

const (
	KindStart RequestKind = "start"
	KindStop  RequestKind = "stop"
)

// Request is the tagged variant Start{job_id, log_fname, job_name} |
// Stop{fname}. Only the fields relevant to Kind are populated; the rest
// are zero. Zero string fields are omitted on the wire; an unset fname
// is sent as nil.
type Request struct {
	Kind RequestKind `msgpack:"kind"`

	// Start fields.
	JobID    string `msgpack:"job_id,omitempty"`
	LogFname string `msgpack:"log_fname,omitempty"`
	JobName  string `msgpack:"job_name,omitempty"`

	// Stop field.
	Fname ledger.Fname `msgpack:"fname"`
}

// NewStart builds a start request.
func NewStart(jobID, logFname, jobName string) Request {
	return Request{Kind: KindStart, JobID: jobID, LogFname: logFname, JobName: jobName}
}

// NewStop builds a stop request.
func NewStop(fname ledger.Fname) Request {
	return Request{Kind: KindStop, Fname: fname}
}

// ReplyKind discriminates the three reply shapes: Fname(value) |
// Error(message) | Null.
type ReplyKind string

const (
	KindFname ReplyKind = "fname"
	KindError ReplyKind = "error"
	KindNull  ReplyKind = "null"
)

// Reply is the tagged reply variant. Clients distinguish an error reply
// from a success reply by Kind, never by sentinel value collision.
type Reply struct {
	Kind    ReplyKind    `msgpack:"kind"`
	Fname   ledger.Fname `msgpack:"fname"`
	Message string       `msgpack:"message,omitempty"`
}

// FnameReply builds a successful reply carrying the claimed fname.
func FnameReply(fn ledger.Fname) Reply {
	return Reply{Kind: KindFname, Fname: fn}
}

// ErrorReply builds an error reply (DuplicateClaim, Exhausted, ...).
func ErrorReply(message string) Reply {
	return Reply{Kind: KindError, Message: message}
}

// NullReply builds the null reply stop() always returns.
func NullReply() Reply {
	return Reply{Kind: KindNull}
}

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool {
	return r.Kind == KindError
}
