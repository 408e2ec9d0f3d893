package web

import (
	"fmt"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v2"
)

// ServiceType is the mDNS service type the status server is announced
// under.
const ServiceType = "_train-logger._tcp"

const mdnsDomain = "local."

// Announcer advertises the status server on the local network via
// mDNS so the logger can be found without knowing its address.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers the mDNS service. txt carries extra metadata
// (session id, mode) as "key=value" strings.
func Announce(instance string, port int, txt []string) (*Announcer, error) {
	server, err := zeroconf.Register(instance, ServiceType, mdnsDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register mdns service: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Shutdown withdraws the announcement.
func (a *Announcer) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// PortFromAddr extracts the TCP port from a listen address like
// ":8080" or "0.0.0.0:8080".
func PortFromAddr(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("parse listen port %q: %w", portStr, err)
	}
	return port, nil
}
