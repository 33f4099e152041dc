package machine

import (
	"net"
	"os"
	"runtime"
	"sync"
)

// Identity describes the host this process runs on. It is resolved once per
// process and shared by every collector request.
type Identity struct {
	Hostname string
	IP       string
	OS       string
	Runtime  string
}

var (
	once    sync.Once
	current Identity
)

// Current returns the process-wide machine identity, resolving it on first use.
func Current() Identity {
	once.Do(func() {
		current = resolve()
	})
	return current
}

func resolve() Identity {
	id := Identity{
		Hostname: "unknown",
		IP:       "unknown",
		OS:       runtime.GOOS,
		Runtime:  runtime.Version(),
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		id.Hostname = host
	}
	if ip := outboundIP(); ip != "" {
		id.IP = ip
	}
	return id
}

// outboundIP picks the first non-loopback unicast IPv4 address. It never
// touches the network, so resolution cannot block or fail slow.
func outboundIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}
