package cerrors

import (
	"encoding/json"

	"github.com/palantir/stacktrace"
)

type ErrorType string

const (
	ErrorTypeNonUserFriendly       ErrorType = "NON_USER_FRIENDLY_ERROR"
	ErrorTypeGeneric               ErrorType = "GENERIC_ERROR"
	ErrorTypeExperimentAborted     ErrorType = "EXPERIMENT_ABORTED"
	ErrorTypeChaosInject           ErrorType = "CHAOS_INJECT_ERROR"
	ErrorTypeChaosRevert           ErrorType = "CHAOS_REVERT_ERROR"
	ErrorTypeScenarioConfiguration ErrorType = "SCENARIO_CONFIGURATION_ERROR"
	ErrorTypeUnknownProperty       ErrorType = "UNKNOWN_PROPERTY"
	ErrorTypeCollaborator          ErrorType = "COLLABORATOR_ERROR"
	ErrorTypeStatusChecks          ErrorType = "STATUS_CHECKS_ERROR"
	ErrorTypeTargetSelection       ErrorType = "TARGET_SELECTION_ERROR"
	ErrorTypeChaosResultCRUD       ErrorType = "CHAOS_RESULT_CRUD_ERROR"
	ErrorTypeHTTPProbe             ErrorType = "HTTP_PROBE_ERROR"
	ErrorTypeTimeout               ErrorType = "TIMEOUT"
)

type userFriendly interface {
	UserFriendly() bool
	ErrorType() ErrorType
}

// IsUserFriendly returns true if err is marked as safe to present to failstep
func IsUserFriendly(err error) bool {
	ufe, ok := err.(userFriendly)
	return ok && ufe.UserFriendly()
}

// GetErrorType returns the type of error if the error is user-friendly
func GetErrorType(err error) ErrorType {
	if ufe, ok := err.(userFriendly); ok {
		return ufe.ErrorType()
	}
	return ErrorTypeNonUserFriendly
}

type Error struct {
	Source    string    `json:"source,omitempty"`
	ErrorCode ErrorType `json:"errorCode,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Target    string    `json:"target,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func (e Error) Error() string {
	return convertToJSON(e)
}

func (e Error) UserFriendly() bool {
	return true
}

func (e Error) ErrorType() ErrorType {
	if e.ErrorCode == "" {
		return ErrorTypeGeneric
	}
	return e.ErrorCode
}

// PreserveError wraps an already-serialized error string so that it survives
// another round of propagation without double encoding
type PreserveError struct {
	ErrString string
}

func (pe PreserveError) Error() string {
	return pe.ErrString
}

func (pe PreserveError) UserFriendly() bool {
	return true
}

func (pe PreserveError) ErrorType() ErrorType {
	return ErrorTypeGeneric
}

// GetRootCauseAndErrorCode unwraps the propagated error and returns the
// user-facing root cause along with its error code. The phase is stamped on
// the root cause when it doesn't carry one already.
func GetRootCauseAndErrorCode(err error, phase string) (string, ErrorType) {
	rootCause := stacktrace.RootCause(err)
	errorType := GetErrorType(rootCause)
	if !IsUserFriendly(rootCause) {
		return err.Error(), errorType
	}
	if cErr, ok := rootCause.(Error); ok && cErr.Phase == "" {
		cErr.Phase = phase
		return cErr.Error(), errorType
	}
	return rootCause.Error(), errorType
}

func convertToJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
