package geocode

import (
	"errors"
	"fmt"
)

// Reason classifies why an address could not be resolved.
type Reason int

const (
	ReasonNoAddressMatch Reason = iota
	ReasonTransport
	ReasonMalformedResponse
	ReasonMissingCredential
	ReasonEmptyInput
)

func (r Reason) String() string {
	switch r {
	case ReasonNoAddressMatch:
		return "no_address_match"
	case ReasonTransport:
		return "transport_error"
	case ReasonMalformedResponse:
		return "malformed_response"
	case ReasonMissingCredential:
		return "missing_api_credential"
	case ReasonEmptyInput:
		return "empty_input"
	default:
		return "unknown"
	}
}

// text is the user-facing reason shown next to a failed row.
func (r Reason) text() string {
	switch r {
	case ReasonNoAddressMatch:
		return "no address match"
	case ReasonTransport:
		return "transport error"
	case ReasonMalformedResponse:
		return "malformed response"
	case ReasonMissingCredential:
		return "missing api credential"
	case ReasonEmptyInput:
		return "empty address"
	default:
		return "unknown error"
	}
}

// Failure is returned by Resolve when neither lookup produced a coordinate.
type Failure struct {
	Reason  Reason
	Address string
	Detail  string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return f.Reason.text()
	}
	return fmt.Sprintf("%s: %s", f.Reason.text(), f.Detail)
}

// Fatal reports whether no other address can succeed either.
func (f *Failure) Fatal() bool {
	return f.Reason == ReasonMissingCredential
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsFatal reports whether err is a Failure that should abort a batch.
func IsFatal(err error) bool {
	f, ok := AsFailure(err)
	return ok && f.Fatal()
}
