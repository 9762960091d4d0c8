// ABOUTME: mDNS advertisement of the control endpoint
// ABOUTME: Lets launchers on the LAN find the player without configuration
package discovery

import (
	"fmt"
	"log"
	"net"

	"github.com/hashicorp/mdns"
)

const serviceType = "_fa-audio._tcp"

// Advertiser announces the WebSocket control endpoint over mDNS until
// stopped.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes the control endpoint as a _fa-audio._tcp service.
// The TXT record carries the WebSocket path so senders need only the
// host and port from the answer.
func Advertise(instanceName string, port int) (*Advertiser, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("failed to get local IPs: %w", err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no usable network interfaces to advertise on")
	}

	service, err := mdns.NewMDNSService(
		instanceName,
		serviceType,
		"",
		"",
		port,
		ips,
		[]string{"path=/control"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising %s as %q on port %d", serviceType, instanceName, port)
	return &Advertiser{server: server}, nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	if a.server != nil {
		a.server.Shutdown()
	}
}

// localIPs returns the non-loopback IPv4 addresses of up interfaces.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
