package bridge

// Status enumerates the terminal states of a bridge command.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusFailure      Status = "failure"
	StatusTimeout      Status = "timeout"
	StatusDisconnected Status = "disconnected"
)

// Outcome is the single result produced for a command. Exactly one Outcome
// is delivered per command sent.
type Outcome struct {
	Status Status
	Result map[string]any // peer-reported payload, present on success
	Reason string         // peer-reported error, present on failure
}

// Success builds a success outcome carrying the peer's result payload.
func Success(result map[string]any) Outcome {
	return Outcome{Status: StatusSuccess, Result: result}
}

// Failure builds a failure outcome with the peer-reported reason.
func Failure(reason string) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

// Timeout builds the outcome for a call abandoned after its bound elapsed.
func Timeout() Outcome {
	return Outcome{Status: StatusTimeout}
}

// Disconnected builds the outcome for a call that could not complete because
// no peer is attached (or the peer went away mid-flight).
func Disconnected() Outcome {
	return Outcome{Status: StatusDisconnected}
}

// OK reports whether the peer completed the command successfully.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// ResultBool returns the named result field when it is a boolean, false
// otherwise. Peers report action-specific indicators like clicked or typed
// this way.
func (o Outcome) ResultBool(key string) bool {
	v, ok := o.Result[key].(bool)
	return ok && v
}

// ResultString returns the named result field when it is a string, "" otherwise.
func (o Outcome) ResultString(key string) string {
	v, _ := o.Result[key].(string)
	return v
}
