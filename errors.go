package csg

import "errors"

// ErrNilDevice is returned by Render when no device is given.
var ErrNilDevice = errors.New("csg: nil device")
