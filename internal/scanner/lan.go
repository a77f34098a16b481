package scanner

import (
	"context"
	"fmt"

	"github.com/zea2/devicemanager/internal/log"
	"github.com/zea2/devicemanager/internal/model"
	"github.com/zea2/devicemanager/internal/worker"
)

// RawLANDevice is one host reported by a LAN enumerator or by nmap.
type RawLANDevice struct {
	IP       string
	MAC      string
	Hostname string
	ExtraIPs []string
}

// LANEnumerator reads the hosts currently known on the local network,
// typically from the system ARP cache. Implementations are platform
// specific.
type LANEnumerator interface {
	Enumerate() ([]RawLANDevice, error)
}

// HostProber looks up the hostname of a scanned IP, for example via SNMP.
type HostProber interface {
	Probe(ctx context.Context, ip string) (string, error)
}

// AddressProber is implemented by scanners that can actively probe an
// address to pull the device behind it into the next scan. The LAN
// scanner supports it when an nmap runner is attached.
type AddressProber interface {
	ProbeAddress(addr string) error
}

// LANScanner scans the local network and caches the result. ARP is the
// primary source; results of active nmap probes accumulate and are merged
// into every scan by MAC address.
type LANScanner struct {
	enum   LANEnumerator
	nmap   *NmapRunner
	prober HostProber
	probes int
	cache  scanCache
}

// LANOption configures optional scanner features.
type LANOption func(*LANScanner)

// WithNmap attaches an nmap runner for active address probing.
func WithNmap(runner *NmapRunner) LANOption {
	return func(s *LANScanner) { s.nmap = runner }
}

// WithHostProber attaches a hostname prober running with the given number
// of concurrent workers per scan.
func WithHostProber(p HostProber, workers int) LANOption {
	return func(s *LANScanner) {
		s.prober = p
		if workers < 1 {
			workers = 1
		}
		s.probes = workers
	}
}

func NewLANScanner(enum LANEnumerator, opts ...LANOption) *LANScanner {
	s := &LANScanner{enum: enum}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LANScanner) Type() model.DeviceType { return model.TypeLAN }

func (s *LANScanner) ListDevices(rescan bool) ([]model.Device, error) {
	return s.cache.get(rescan, s.scan)
}

func (s *LANScanner) FindDevices(rescan bool, filters Filters) ([]model.Device, error) {
	if err := validateFilters(model.TypeLAN, filters); err != nil {
		return nil, err
	}
	filters, err := normalizeLANFilters(filters)
	if err != nil {
		return nil, err
	}
	devices, err := s.ListDevices(rescan)
	if err != nil {
		return nil, err
	}
	return filterDevices(devices, filters), nil
}

// ProbeAddress runs an nmap ping scan against the address so the host
// shows up in subsequent scans even when it is missing from the ARP cache.
func (s *LANScanner) ProbeAddress(addr string) error {
	if s.nmap == nil {
		return fmt.Errorf("%w: no nmap runner attached", ErrScanUnavailable)
	}
	return s.nmap.Scan(addr)
}

func (s *LANScanner) scan() ([]model.Device, error) {
	scanID := newScanID()
	log.Debug("Scanning local network", "scan_id", scanID)

	raw, err := s.enum.Enumerate()
	if err != nil {
		log.Warn("Network scan failed", "scan_id", scanID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrScanUnavailable, err)
	}
	if s.nmap != nil {
		raw = append(raw, s.nmap.Hosts()...)
	}

	devices := s.merge(raw)
	if s.prober != nil {
		s.enrich(devices)
	}

	log.Debug("Network scan finished", "scan_id", scanID, "devices", len(devices))
	return devices, nil
}

// merge collapses raw entries sharing a MAC address into one record. The
// first IP seen for a MAC becomes the address, further IPs become aliases.
// Entries without a valid MAC are dropped.
func (s *LANScanner) merge(raw []RawLANDevice) []model.Device {
	devices := make([]model.Device, 0, len(raw))
	byMAC := make(map[string]*model.LANDevice, len(raw))

	for _, r := range raw {
		mac, err := model.FormatMAC(r.MAC)
		if err != nil || mac == "" {
			continue
		}
		dev, ok := byMAC[mac]
		if !ok {
			dev = &model.LANDevice{}
			if err := dev.SetMAC(mac); err != nil {
				continue
			}
			dev.SetAddress(r.IP)
			byMAC[mac] = dev
			devices = append(devices, dev)
		}
		aliases := dev.AddressAliases()
		if r.IP != "" && r.IP != dev.Address() {
			aliases = append(aliases, r.IP)
		}
		aliases = append(aliases, r.ExtraIPs...)
		dev.SetAddressAliases(aliases)
		if r.Hostname != "" && dev.Hostname == "" {
			dev.Hostname = r.Hostname
		}
	}
	return devices
}

// enrich fills in missing hostnames by probing each device's address on a
// small worker pool. Probe failures are expected, most hosts don't answer.
func (s *LANScanner) enrich(devices []model.Device) {
	pool := worker.NewPool(s.probes)
	pool.Start()
	defer pool.Stop()

	for _, d := range devices {
		lan, ok := d.(*model.LANDevice)
		if !ok || lan.Hostname != "" || lan.Address() == "" {
			continue
		}
		pool.Submit(worker.Job{
			ID: lan.Address(),
			Run: func(ctx context.Context) error {
				name, err := s.prober.Probe(ctx, lan.Address())
				if err != nil {
					return err
				}
				lan.Hostname = name
				return nil
			},
		})
	}
	pool.Wait()
}

// normalizeLANFilters brings a mac_address filter value into the canonical
// MAC form so any accepted spelling matches stored records.
func normalizeLANFilters(filters Filters) (Filters, error) {
	raw, ok := filters["mac_address"]
	if !ok {
		return filters, nil
	}
	mac, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: mac_address filter must be a string", ErrInvalidFilter)
	}
	formatted, err := model.FormatMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	out := make(Filters, len(filters))
	for k, v := range filters {
		out[k] = v
	}
	out["mac_address"] = formatted
	return out, nil
}
