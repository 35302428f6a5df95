package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ModelInvocationError reports that the model could not produce a message: transport
// failure, timeout, refusal or an unparseable response.
type ModelInvocationError struct {
	Engine string
	Err    error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (%s): %v", e.Engine, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// WrapModelError wraps err into a *ModelInvocationError unless it already is one.
func WrapModelError(engineName string, err error) error {
	if err == nil {
		return nil
	}
	var mie *ModelInvocationError
	if errors.As(err, &mie) {
		return err
	}
	return &ModelInvocationError{Engine: engineName, Err: err}
}
