package scanner

import (
	"sync"

	"github.com/zea2/devicemanager/internal/model"
)

// scanCache holds the last successful scan result of one capability
// scanner. The zero value is the unscanned state.
type scanCache struct {
	mu      sync.Mutex
	devices []model.Device
	scanned bool
}

// get returns the cached devices, running fetch first when the cache is
// still unscanned or rescan is set. A failing fetch leaves the previous
// result in place, so a later call without rescan still serves it.
func (c *scanCache) get(rescan bool, fetch func() ([]model.Device, error)) ([]model.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.scanned || rescan {
		devices, err := fetch()
		if err != nil {
			return nil, err
		}
		c.devices = devices
		c.scanned = true
	}

	out := make([]model.Device, len(c.devices))
	copy(out, c.devices)
	return out, nil
}
