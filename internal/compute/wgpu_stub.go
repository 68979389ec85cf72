//go:build !wgpu

package compute

import "errors"

var errWGPUUnavailable = errors.New("compute: wgpu: not compiled in (build with -tags wgpu)")

func NewWGPUDevice(opts Options) (Device, error) {
	return nil, errWGPUUnavailable
}
