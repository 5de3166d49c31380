package insight

import "errors"

// ErrEmptyText is returned when the text is empty after trimming whitespace
var ErrEmptyText = errors.New("empty text")

// ConfigurationError reports missing settings or a remote client that could not be built.
// Nothing is sent over the network when it is returned.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RemoteInsightError reports a failed remote exchange: transport errors,
// provider errors and responses that cannot be decoded
type RemoteInsightError struct {
	Err error
}

func (e *RemoteInsightError) Error() string {
	return "LLM call failed: " + e.Err.Error()
}

func (e *RemoteInsightError) Unwrap() error {
	return e.Err
}
