package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

const sysNameOID = ".1.3.6.1.2.1.1.5.0"

// SNMPProber resolves hostnames of scanned hosts by reading the SNMP
// sysName object. Hosts without an SNMP agent simply time out.
type SNMPProber struct {
	community string
	port      uint16
	timeout   time.Duration
}

func NewSNMPProber(community string) *SNMPProber {
	return &SNMPProber{community: community, port: 161, timeout: 2 * time.Second}
}

func (p *SNMPProber) Probe(ctx context.Context, ip string) (string, error) {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      p.port,
		Community: p.community,
		Version:   gosnmp.Version2c,
		Timeout:   p.timeout,
		Retries:   0,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("snmp connect to %s failed: %w", ip, err)
	}
	defer client.Conn.Close()

	res, err := client.Get([]string{sysNameOID})
	if err != nil {
		return "", fmt.Errorf("snmp get from %s failed: %w", ip, err)
	}
	for _, v := range res.Variables {
		if v.Type != gosnmp.OctetString {
			continue
		}
		if b, ok := v.Value.([]byte); ok && len(b) > 0 {
			return string(b), nil
		}
	}
	return "", fmt.Errorf("host %s reports no sysName", ip)
}
