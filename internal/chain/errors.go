package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// CodeSlotSkipped is returned for slots that were skipped or are missing in
// long-term storage.
const CodeSlotSkipped = -32009

// Outcome classifies a failed JSON-RPC response.
type Outcome int

const (
	OutcomeFatal Outcome = iota
	OutcomeRetriable
	OutcomeSkippable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRetriable:
		return "retriable"
	case OutcomeSkippable:
		return "skippable"
	default:
		return "fatal"
	}
}

// Classify maps a JSON-RPC error code to an outcome.
func Classify(code int) Outcome {
	switch {
	case code == CodeSlotSkipped:
		return OutcomeSkippable
	case code == -32603:
		return OutcomeRetriable
	case code <= -32000 && code >= -32099:
		return OutcomeRetriable
	default:
		return OutcomeFatal
	}
}

// RPCError is an error object returned by the node for a single request.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// RetriableError marks a failure that is safe to retry.
type RetriableError struct {
	Err error
}

func (e *RetriableError) Error() string { return e.Err.Error() }

func (e *RetriableError) Unwrap() error { return e.Err }

// Retriable reports true.
func (e *RetriableError) Retriable() bool { return true }

// Retriable wraps err so that IsRetriable reports true for it.
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &RetriableError{Err: err}
}

// IsRetriable reports whether any error in err's chain is marked retriable.
func IsRetriable(err error) bool {
	var r interface{ Retriable() bool }
	return errors.As(err, &r) && r.Retriable()
}

// ErrNullResult is returned when a response carries neither a result nor an
// error, which usually means the node behind a load balancer is not synced.
var ErrNullResult = errors.New("result is null, make sure node is synced")

// Response is the outcome of one request inside a batch.
type Response struct {
	Result json.RawMessage
	Err    error
}

func responseError(err error) error {
	if err == nil || errors.Is(err, rpc.ErrNoResult) {
		return nil
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}
	return Retriable(err)
}

// Value resolves a response into its result. A skippable error yields a nil
// result and ok=false; retriable conditions are wrapped in RetriableError.
func (r Response) Value() (result json.RawMessage, ok bool, err error) {
	if r.Err != nil {
		var rpcErr *RPCError
		if !errors.As(r.Err, &rpcErr) {
			return nil, false, r.Err
		}
		switch Classify(rpcErr.Code) {
		case OutcomeSkippable:
			return nil, false, nil
		case OutcomeRetriable:
			return nil, false, Retriable(rpcErr)
		default:
			return nil, false, rpcErr
		}
	}
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, false, Retriable(ErrNullResult)
	}
	return r.Result, true, nil
}
