package memcache

import (
	"net"
	"strconv"
	"strings"
)

type ServerType int

const (
	ServerTypeTCP ServerType = iota
	ServerTypeUDP
	ServerTypeUnix
)

func (t ServerType) String() string {
	switch t {
	case ServerTypeTCP:
		return "tcp"
	case ServerTypeUDP:
		return "udp"
	case ServerTypeUnix:
		return "unix"
	default:
		return "unknown"
	}
}

// A parsed server spec.  Port is zero for UNIX sockets.
type ServerAddress struct {
	Type ServerType
	Host string
	Port int
}

// Returns the dialable address: "host:port" for TCP/UDP, the socket path
// for UNIX sockets.
func (a ServerAddress) Address() string {
	if a.Type == ServerTypeUnix {
		return a.Host
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Returns the address in server spec form; parsing it yields a.
func (a ServerAddress) String() string {
	if a.Type == ServerTypeUDP {
		return "udp:" + a.Address()
	}
	return a.Address()
}

// Parses a single server spec:
//
//     udp:host[:port]    UDP server
//     host:port          TCP server
//     /path/to/socket    UNIX socket (anything containing a '/')
//     host               TCP server on DefaultPort
//
// IPv6 hosts with a port must be bracketed, e.g. "[::1]:11211".
func ParseServerSpec(spec string) (ServerAddress, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ServerAddress{}, NewInvalidConfigurationError(
			"Empty server spec")
	}

	if strings.HasPrefix(spec, "udp:") {
		host, port, err := splitHostPort(spec[4:])
		if err != nil {
			return ServerAddress{}, WrapInvalidConfigurationError(
				err,
				"Invalid UDP server spec %q",
				spec)
		}
		return ServerAddress{Type: ServerTypeUDP, Host: host, Port: port}, nil
	}

	if strings.Contains(spec, "/") && !strings.Contains(spec, ":") {
		return ServerAddress{Type: ServerTypeUnix, Host: spec}, nil
	}

	host, port, err := splitHostPort(spec)
	if err != nil {
		return ServerAddress{}, WrapInvalidConfigurationError(
			err,
			"Invalid server spec %q",
			spec)
	}
	return ServerAddress{Type: ServerTypeTCP, Host: host, Port: port}, nil
}

// Parses a list of server specs.  At least one spec is required.
func ParseServerSpecs(specs []string) ([]ServerAddress, error) {
	if len(specs) == 0 {
		return nil, NewInvalidConfigurationError("No servers given")
	}

	addrs := make([]ServerAddress, 0, len(specs))
	for _, spec := range specs {
		addr, err := ParseServerSpec(spec)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func splitHostPort(hostPort string) (string, int, error) {
	var host, portStr string
	switch {
	case strings.HasPrefix(hostPort, "["):
		h, p, err := net.SplitHostPort(hostPort)
		if err != nil {
			if !strings.HasSuffix(hostPort, "]") {
				return "", 0, err
			}
			h, p = hostPort[1:len(hostPort)-1], ""
		}
		host, portStr = h, p
	case strings.Contains(hostPort, ":"):
		idx := strings.Index(hostPort, ":")
		host, portStr = hostPort[:idx], hostPort[idx+1:]
	default:
		host = hostPort
	}

	if host == "" {
		return "", 0, NewInvalidConfigurationError("Missing host")
	}
	if portStr == "" {
		return host, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, NewInvalidConfigurationError(
			"Invalid port %q",
			portStr)
	}
	return host, port, nil
}
