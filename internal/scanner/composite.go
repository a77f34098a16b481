package scanner

import (
	"errors"
	"fmt"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/registry"
)

// Composite fans scan calls out over the registered capability scanners
// and concatenates their results in registration order. It keeps no cache
// of its own; each sub-scanner caches for itself.
type Composite struct {
	order    []model.DeviceType
	scanners map[model.DeviceType]Scanner
}

func NewComposite(scanners ...Scanner) *Composite {
	c := &Composite{scanners: make(map[model.DeviceType]Scanner, len(scanners))}
	for _, s := range scanners {
		if _, ok := c.scanners[s.Type()]; ok {
			continue
		}
		c.order = append(c.order, s.Type())
		c.scanners[s.Type()] = s
	}
	return c
}

// Get returns the capability scanner for a type key. The key may be the
// type tag, its name, a record or a typed nil record pointer.
func (c *Composite) Get(key any) (Scanner, error) {
	t, err := registry.Resolve(key)
	if err != nil {
		return nil, err
	}
	s, ok := c.scanners[t]
	if !ok {
		return nil, fmt.Errorf("%w: no scanner for %s", registry.ErrUnknownType, t)
	}
	return s, nil
}

// Types returns the registered device types in registration order.
func (c *Composite) Types() []model.DeviceType {
	return append([]model.DeviceType(nil), c.order...)
}

func (c *Composite) ListDevices(rescan bool) ([]model.Device, error) {
	var all []model.Device
	for _, t := range c.order {
		devices, err := c.scanners[t].ListDevices(rescan)
		if err != nil {
			return nil, err
		}
		all = append(all, devices...)
	}
	return all, nil
}

// FindDevices matches the filters against every device type. A filter
// name one type does not know simply excludes that type from the result;
// it is an error only if no registered scanner accepts it, in which case
// the result is empty. Scan failures still propagate.
func (c *Composite) FindDevices(rescan bool, filters Filters) ([]model.Device, error) {
	var all []model.Device
	for _, t := range c.order {
		devices, err := c.scanners[t].FindDevices(rescan, filters)
		if errors.Is(err, ErrInvalidFilter) {
			log.Trace("Filter does not apply to device type", "type", string(t), "error", err)
			if rescan {
				// The caller asked for fresh data; refresh this type's
				// cache even though it contributes no matches.
				if _, err := c.scanners[t].ListDevices(true); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, devices...)
	}
	if all == nil {
		all = []model.Device{}
	}
	return all, nil
}
