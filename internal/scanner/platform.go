package scanner

// NewPlatformUSBEnumerator returns the USB enumerator for the host
// platform. On unsupported platforms every Enumerate call fails, which
// surfaces as ErrScanUnavailable.
func NewPlatformUSBEnumerator() USBEnumerator { return newUSBEnumerator() }

// NewPlatformLANEnumerator returns the LAN enumerator for the host
// platform.
func NewPlatformLANEnumerator() LANEnumerator { return newLANEnumerator() }
