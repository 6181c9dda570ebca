// =============================================================================
// CONFIGURATION - Static Peer Set from a Properties File
// =============================================================================
//
// Example file:
//
//   MACHINES=3
//   MACHINES.m1.HOST=localhost
//   MACHINES.m1.PORT=4001
//   MACHINES.m2.HOST=localhost
//   MACHINES.m2.PORT=4002
//   MACHINES.m3.HOST=localhost
//   MACHINES.m3.PORT=4003
//   WORD_LAMBDA=10
//   TIME_TO_WAIT=5000
//
// Machines are named m1..mN. A peer's id is its port unless
// MACHINES.<name>.ID says otherwise.
//
// =============================================================================
// INVARIANT THIS FILE MUST UPHOLD
// =============================================================================
//
// INVARIANT: Every peer of a run resolves the same PeerSet, and the local
//            peer is a member of it.
//
// The quorum is the size of the PeerSet. A peer that leaves itself out waits
// for one sender fewer than everyone else and orders differently.
//
// Every error returned here is fatal at startup.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/magiconair/properties"

	"github.com/senutpal/lamportchat/internal/lamport"
)

var (
	ErrMissingKey       = errors.New("missing property")
	ErrBadValue         = errors.New("invalid property value")
	ErrUnknownMachine   = errors.New("unknown machine")
	ErrDuplicateID      = errors.New("duplicate peer id")
	ErrSelfNotInPeerSet = errors.New("local peer not in peer set")
)

type BroadcastPolicy string

const (
	PolicyBestEffort BroadcastPolicy = "best-effort"
	PolicyAbort      BroadcastPolicy = "abort"
)

type DeliveryMode string

const (
	ModeDrain  DeliveryMode = "drain"
	ModeSingle DeliveryMode = "single"
)

type Machine struct {
	Name string
	Host string
	Port int
	ID   int64
}

func (m Machine) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// File is everything read from the properties file.
type File struct {
	Machines map[string]Machine

	WordLambda      float64
	TimeToWait      time.Duration
	ClockStart      int64
	DialTimeout     time.Duration
	BroadcastPolicy BroadcastPolicy
	DeliveryMode    DeliveryMode

	HTTPAddr     string
	RedisAddr    string
	RedisChannel string
	MDNS         bool
}

func Load(path string) (*File, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return parse(p)
}

func LoadString(s string) (*File, error) {
	p, err := properties.LoadString(s)
	if err != nil {
		return nil, err
	}
	return parse(p)
}

func parse(p *properties.Properties) (*File, error) {
	count, err := requiredInt(p, "MACHINES")
	if err != nil {
		return nil, err
	}

	f := &File{Machines: make(map[string]Machine, count)}
	ids := make(map[int64]string, count)
	for i := 1; i <= count; i++ {
		name := "m" + strconv.Itoa(i)
		prefix := "MACHINES." + name + "."

		host, ok := p.Get(prefix + "HOST")
		if !ok || host == "" {
			return nil, fmt.Errorf("%w: %sHOST", ErrMissingKey, prefix)
		}
		port, err := requiredInt(p, prefix+"PORT")
		if err != nil {
			return nil, err
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: %sPORT=%d", ErrBadValue, prefix, port)
		}
		id, err := optionalInt64(p, prefix+"ID", int64(port))
		if err != nil {
			return nil, err
		}
		if !lamport.InRange(id) {
			return nil, fmt.Errorf("%w: %sID=%d out of range", ErrBadValue, prefix, id)
		}
		if other, dup := ids[id]; dup {
			return nil, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicateID, id, other, name)
		}
		ids[id] = name
		f.Machines[name] = Machine{Name: name, Host: host, Port: port, ID: id}
	}

	if f.WordLambda, err = optionalFloat(p, "WORD_LAMBDA", 10); err != nil {
		return nil, err
	}
	waitMS, err := optionalInt64(p, "TIME_TO_WAIT", 5000)
	if err != nil {
		return nil, err
	}
	f.TimeToWait = time.Duration(waitMS) * time.Millisecond
	if f.ClockStart, err = optionalInt64(p, "CLOCK_START", 0); err != nil {
		return nil, err
	}
	if !lamport.InRange(f.ClockStart) {
		return nil, fmt.Errorf("%w: CLOCK_START=%d out of range", ErrBadValue, f.ClockStart)
	}
	dialMS, err := optionalInt64(p, "DIAL_TIMEOUT_MS", 0)
	if err != nil {
		return nil, err
	}
	f.DialTimeout = time.Duration(dialMS) * time.Millisecond

	switch v := BroadcastPolicy(p.GetString("BROADCAST_POLICY", string(PolicyBestEffort))); v {
	case PolicyBestEffort, PolicyAbort:
		f.BroadcastPolicy = v
	default:
		return nil, fmt.Errorf("%w: BROADCAST_POLICY=%s", ErrBadValue, v)
	}
	switch v := DeliveryMode(p.GetString("DELIVERY_MODE", string(ModeDrain))); v {
	case ModeDrain, ModeSingle:
		f.DeliveryMode = v
	default:
		return nil, fmt.Errorf("%w: DELIVERY_MODE=%s", ErrBadValue, v)
	}

	f.HTTPAddr = p.GetString("HTTP_ADDR", "")
	f.RedisAddr = p.GetString("REDIS_ADDR", "")
	f.RedisChannel = p.GetString("REDIS_CHANNEL", "lamportchat")
	if v, ok := p.Get("MDNS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: MDNS=%s", ErrBadValue, v)
		}
		f.MDNS = b
	}
	return f, nil
}

// Resolved is the local peer plus the PeerSet it multicasts to.
type Resolved struct {
	Self  Machine
	Peers PeerSet
}

// Resolve builds the PeerSet for the machine named self. names lists the
// members by machine name; an empty list means every configured machine.
func (f *File) Resolve(self string, names []string) (*Resolved, error) {
	me, ok := f.Machines[self]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, self)
	}
	if len(names) == 0 {
		for name := range f.Machines {
			names = append(names, name)
		}
	}

	seen := make(map[string]bool, len(names))
	var peers PeerSet
	for _, name := range names {
		name = strings.TrimSpace(name)
		if seen[name] {
			continue
		}
		seen[name] = true
		m, ok := f.Machines[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, name)
		}
		peers = append(peers, Peer{ID: m.ID, Name: m.Name, Addr: m.Addr()})
	}
	if !seen[self] {
		return nil, fmt.Errorf("%w: %s", ErrSelfNotInPeerSet, self)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].ID < peers[j].ID })
	return &Resolved{Self: me, Peers: peers}, nil
}

func requiredInt(p *properties.Properties, key string) (int, error) {
	v, ok := p.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrBadValue, key, v)
	}
	return n, nil
}

func optionalInt64(p *properties.Properties, key string, def int64) (int64, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrBadValue, key, v)
	}
	return n, nil
}

func optionalFloat(p *properties.Properties, key string, def float64) (float64, error) {
	v, ok := p.Get(key)
	if !ok {
		return def, nil
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrBadValue, key, v)
	}
	return x, nil
}
