//go:build !linux && !windows

package scanner

import "errors"

var errUnsupportedPlatform = errors.New("device enumeration is not supported on this platform")

func newUSBEnumerator() USBEnumerator { return unsupportedUSB{} }

func newLANEnumerator() LANEnumerator { return unsupportedLAN{} }

type unsupportedUSB struct{}

func (unsupportedUSB) Enumerate() ([]RawUSBDevice, error) {
	return nil, errUnsupportedPlatform
}

type unsupportedLAN struct{}

func (unsupportedLAN) Enumerate() ([]RawLANDevice, error) {
	return nil, errUnsupportedPlatform
}
