package listing

import "strings"

// Envelope status values. Sources in the wild send either spelling, so
// comparisons are case-insensitive.
const (
	StatusOK      = "ok"
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFail    = "fail"
	StatusFailure = "failure"
)

// Answer is the response envelope of the listing endpoint.
//
//	{"status": "ok", "result": [{"id": 1, "name": "..."}], "errorCode": "", "errorMessage": ""}
type Answer struct {
	Status       string  `json:"status"`
	Result       Listing `json:"result"`
	ErrorCode    string  `json:"errorCode,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// Failed reports whether the envelope describes a source-side failure.
// A non-empty error code always counts as a failure; otherwise the status
// decides. An empty status with no error code is treated as success.
func (a *Answer) Failed() bool {
	if a.ErrorCode != "" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(a.Status)) {
	case StatusError, StatusFail, StatusFailure:
		return true
	default:
		return false
	}
}

// Listing returns the children carried by a successful answer, or a
// *SourceError for a failed one. A successful answer with a null result is an
// empty listing.
func (a *Answer) Listing(parentID int64) (Listing, error) {
	if a.Failed() {
		return nil, &SourceError{
			ParentID: parentID,
			Status:   a.Status,
			Code:     a.ErrorCode,
			Message:  a.ErrorMessage,
		}
	}
	if a.Result == nil {
		return Listing{}, nil
	}
	return a.Result, nil
}

// OK builds a successful answer around l.
func OK(l Listing) Answer {
	if l == nil {
		l = Listing{}
	}
	return Answer{Status: StatusOK, Result: l}
}

// Failure builds a failed answer with the given code and message.
func Failure(code, message string) Answer {
	return Answer{Status: StatusError, ErrorCode: code, ErrorMessage: message}
}
