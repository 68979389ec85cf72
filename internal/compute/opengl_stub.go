//go:build !gl

package compute

import "errors"

var errGLUnavailable = errors.New("compute: gl: not compiled in (build with -tags gl)")

func NewGLDevice(opts Options) (Device, error) {
	return nil, errGLUnavailable
}
