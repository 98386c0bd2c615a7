package access

import "errors"

var (
	ErrNotAuthorized = errors.New("user not authorized")
	ErrBusy          = errors.New("previous job still processing")
)
