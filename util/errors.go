package util

import "github.com/pkg/errors"

func PanicToError(err interface{}) error {
	switch x := err.(type) {
	case string:
		return errors.New(x)
	case error:
		return x
	default:
		return errors.Errorf("unknown panic: %v", x)
	}
}
