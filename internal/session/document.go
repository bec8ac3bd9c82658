package session

import (
	"fmt"
	"sort"
	"sync"
)

// Mode selects what kind of session is started.
type Mode string

const (
	ModeInteractive       Mode = "interactive"
	ModePortForward       Mode = "port-forward"
	ModeRemotePortForward Mode = "remote-port-forward"
)

// Ports describes a forwarding request. Host is only used by
// ModeRemotePortForward.
type Ports struct {
	Local  int    `json:"local,omitempty"`
	Remote int    `json:"remote,omitempty"`
	Host   string `json:"host,omitempty"`
}

// Document turns a target and ports into the start-session arguments for
// one Mode.
type Document interface {
	Name() string
	Args(target string, p Ports) ([]string, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[Mode]Document{}
)

func Register(m Mode, d Document) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[m] = d
}

func Get(m Mode) (Document, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[m]
	if !ok {
		return nil, fmt.Errorf("no session document for mode %s", m)
	}
	return d, nil
}

// Modes lists the registered modes in name order.
func Modes() []Mode {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Mode, 0, len(registry))
	for m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type shellDocument struct{}

func (shellDocument) Name() string { return "" }

func (shellDocument) Args(target string, _ Ports) ([]string, error) {
	return []string{"ssm", "start-session", "--target", target}, nil
}

type portForwardDocument struct{}

func (portForwardDocument) Name() string { return "AWS-StartPortForwardingSession" }

func (d portForwardDocument) Args(target string, p Ports) ([]string, error) {
	if err := validPort("local", p.Local); err != nil {
		return nil, err
	}
	if err := validPort("remote", p.Remote); err != nil {
		return nil, err
	}
	return []string{
		"ssm", "start-session", "--target", target,
		"--document-name", d.Name(),
		"--parameters", fmt.Sprintf("portNumber=%d,localPortNumber=%d", p.Remote, p.Local),
	}, nil
}

type remotePortForwardDocument struct{}

func (remotePortForwardDocument) Name() string {
	return "AWS-StartPortForwardingSessionToRemoteHost"
}

func (d remotePortForwardDocument) Args(target string, p Ports) ([]string, error) {
	if p.Host == "" {
		return nil, fmt.Errorf("remote host is required for %s", ModeRemotePortForward)
	}
	if err := validPort("local", p.Local); err != nil {
		return nil, err
	}
	if err := validPort("remote", p.Remote); err != nil {
		return nil, err
	}
	return []string{
		"ssm", "start-session", "--target", target,
		"--document-name", d.Name(),
		"--parameters", fmt.Sprintf("host=%s,portNumber=%d,localPortNumber=%d", p.Host, p.Remote, p.Local),
	}, nil
}

func validPort(which string, n int) error {
	if n < 1 || n > 65535 {
		return fmt.Errorf("invalid %s port %d: must be 1-65535", which, n)
	}
	return nil
}

func init() {
	Register(ModeInteractive, shellDocument{})
	Register(ModePortForward, portForwardDocument{})
	Register(ModeRemotePortForward, remotePortForwardDocument{})
}
