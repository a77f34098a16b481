package scanner

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os/exec"
	"sync"

	"github.com/zea2/devicemanager/internal/log"
)

// NmapRunner wraps the nmap binary for active ping scans. Every scan's
// hosts accumulate in the runner, keyed by MAC address, so probed hosts
// keep showing up in later passive scans.
type NmapRunner struct {
	path string

	mu    sync.Mutex
	order []string
	hosts map[string]RawLANDevice
}

// NewNmapRunner locates the nmap binary. An empty path searches PATH.
func NewNmapRunner(path string) (*NmapRunner, error) {
	if path == "" {
		path = "nmap"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("nmap binary not found: %w", err)
	}
	return &NmapRunner{path: resolved, hosts: make(map[string]RawLANDevice)}, nil
}

// nmap XML output, reduced to the fields a ping scan fills in.
type nmapRun struct {
	Hosts []struct {
		Status struct {
			State string `xml:"state,attr"`
		} `xml:"status"`
		Addresses []struct {
			Addr     string `xml:"addr,attr"`
			AddrType string `xml:"addrtype,attr"`
		} `xml:"address"`
		Hostnames []struct {
			Name string `xml:"name,attr"`
		} `xml:"hostnames>hostname"`
	} `xml:"host"`
}

// Scan runs a ping scan against the targets and merges the hosts found
// into the runner's accumulated result.
func (n *NmapRunner) Scan(targets ...string) error {
	if len(targets) == 0 {
		return nil
	}
	args := append([]string{"-sn", "-oX", "-"}, targets...)
	log.Debug("Running nmap", "targets", len(targets))

	out, err := exec.Command(n.path, args...).Output()
	if err != nil {
		return fmt.Errorf("nmap scan failed: %w", err)
	}

	var run nmapRun
	if err := xml.Unmarshal(bytes.TrimSpace(out), &run); err != nil {
		return fmt.Errorf("cannot parse nmap output: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, h := range run.Hosts {
		if h.Status.State != "up" {
			continue
		}
		var dev RawLANDevice
		for _, a := range h.Addresses {
			switch a.AddrType {
			case "mac":
				dev.MAC = a.Addr
			case "ipv4", "ipv6":
				if dev.IP == "" {
					dev.IP = a.Addr
				} else {
					dev.ExtraIPs = append(dev.ExtraIPs, a.Addr)
				}
			}
		}
		if len(h.Hostnames) > 0 {
			dev.Hostname = h.Hostnames[0].Name
		}
		// Without a MAC the host cannot be identified across scans.
		if dev.MAC == "" {
			continue
		}
		if _, ok := n.hosts[dev.MAC]; !ok {
			n.order = append(n.order, dev.MAC)
		}
		n.hosts[dev.MAC] = dev
	}
	return nil
}

// Hosts returns all hosts accumulated over past scans, oldest first.
func (n *NmapRunner) Hosts() []RawLANDevice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]RawLANDevice, 0, len(n.order))
	for _, mac := range n.order {
		out = append(out, n.hosts[mac])
	}
	return out
}
