// Package discovery announces a running peer on the local network so
// operators can find it. It never changes who is in the group; the PeerSet
// comes from configuration only.
package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

const (
	Service = "_lamportchat._tcp"
	Domain  = "local."
)

type Announcer struct {
	server *zeroconf.Server
}

// Announce registers instance on port. text is published as TXT records.
func Announce(instance string, port int, text []string) (*Announcer, error) {
	server, err := zeroconf.Register(instance, Service, Domain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service %s: %w", instance, err)
	}
	return &Announcer{server: server}, nil
}

// TXT builds the records for one peer.
func TXT(id int64, name, instance string) []string {
	return []string{
		"txtv=0",
		fmt.Sprintf("id=%d", id),
		"name=" + name,
		"instance=" + instance,
	}
}

func (a *Announcer) Shutdown() {
	a.server.Shutdown()
}
