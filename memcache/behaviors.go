package memcache

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

type Behavior int

const (
	BehaviorNoBlock Behavior = iota
	BehaviorTCPNoDelay
	BehaviorHash
	BehaviorKetama
	BehaviorDistribution
	BehaviorSocketSendSize
	BehaviorSocketRecvSize
	BehaviorCacheLookups
	BehaviorSupportCAS
	BehaviorPollTimeout
	BehaviorBufferRequests
	BehaviorSortHosts
	BehaviorVerifyKey
	BehaviorConnectTimeout
	BehaviorRetryTimeout
	BehaviorKetamaWeighted
	BehaviorKetamaHash
	BehaviorBinaryProtocol
	BehaviorSndTimeout
	BehaviorRcvTimeout
	BehaviorServerFailureLimit
)

type behaviorKind int

const (
	kindBool behaviorKind = iota
	kindUint
	kindHasher
	kindDistribution
)

type behaviorInfo struct {
	name string
	kind behaviorKind
}

var behaviorTable = map[Behavior]behaviorInfo{
	BehaviorNoBlock:            {"no_block", kindBool},
	BehaviorTCPNoDelay:         {"tcp_nodelay", kindBool},
	BehaviorHash:               {"hash", kindHasher},
	BehaviorKetama:             {"ketama", kindBool},
	BehaviorDistribution:       {"distribution", kindDistribution},
	BehaviorSocketSendSize:     {"socket_send_size", kindUint},
	BehaviorSocketRecvSize:     {"socket_recv_size", kindUint},
	BehaviorCacheLookups:       {"cache_lookups", kindBool},
	BehaviorSupportCAS:         {"support_cas", kindBool},
	BehaviorPollTimeout:        {"poll_timeout", kindUint},
	BehaviorBufferRequests:     {"buffer_requests", kindBool},
	BehaviorSortHosts:          {"sort_hosts", kindBool},
	BehaviorVerifyKey:          {"verify_key", kindBool},
	BehaviorConnectTimeout:     {"connect_timeout", kindUint},
	BehaviorRetryTimeout:       {"retry_timeout", kindUint},
	BehaviorKetamaWeighted:     {"ketama_weighted", kindBool},
	BehaviorKetamaHash:         {"ketama_hash", kindHasher},
	BehaviorBinaryProtocol:     {"binary_protocol", kindBool},
	BehaviorSndTimeout:         {"snd_timeout", kindUint},
	BehaviorRcvTimeout:         {"rcv_timeout", kindUint},
	BehaviorServerFailureLimit: {"server_failure_limit", kindUint},
}

type Hasher uint64

const (
	HashDefault Hasher = iota
	HashMD5
	HashCRC
	HashFNV1_64
	HashFNV1A_64
	HashFNV1_32
	HashFNV1A_32
	HashHsieh
	HashMurmur
)

var hasherNames = []string{
	HashDefault:  "default",
	HashMD5:      "md5",
	HashCRC:      "crc",
	HashFNV1_64:  "fnv1_64",
	HashFNV1A_64: "fnv1a_64",
	HashFNV1_32:  "fnv1_32",
	HashFNV1A_32: "fnv1a_32",
	HashHsieh:    "hsieh",
	HashMurmur:   "murmur",
}

func (h Hasher) String() string {
	if int(h) < len(hasherNames) {
		return hasherNames[h]
	}
	return strconv.FormatUint(uint64(h), 10)
}

type Distribution uint64

const (
	DistributionModula Distribution = iota
	DistributionConsistent
	DistributionConsistentKetama
)

var distributionNames = []string{
	DistributionModula:           "modula",
	DistributionConsistent:       "consistent",
	DistributionConsistentKetama: "consistent_ketama",
}

func (d Distribution) String() string {
	if int(d) < len(distributionNames) {
		return distributionNames[d]
	}
	return strconv.FormatUint(uint64(d), 10)
}

// name -> behavior, built once from behaviorTable.
var behaviorsByName = func() map[string]Behavior {
	m := make(map[string]Behavior, len(behaviorTable))
	for b, info := range behaviorTable {
		m[info.name] = b
	}
	return m
}()

func (b Behavior) String() string {
	if info, ok := behaviorTable[b]; ok {
		return info.name
	}
	return "behavior(" + strconv.Itoa(int(b)) + ")"
}

// An immutable set of client behaviors.  The zero value and nil are both
// empty behavior sets.
type Behaviors struct {
	values map[Behavior]uint64
}

// Translates a name -> string value mapping into Behaviors.  "hash" and
// "ketama_hash" take hasher names, "distribution" takes distribution
// names, boolean behaviors take true/false/1/0 and the rest take unsigned
// integers.  Unknown names or bad values are configuration errors.
func NewBehaviors(raw map[string]string) (*Behaviors, error) {
	values := make(map[Behavior]uint64, len(raw))
	for name, value := range raw {
		b, ok := behaviorsByName[name]
		if !ok {
			return nil, NewInvalidConfigurationError(
				"Unknown behavior %q",
				name)
		}

		v, err := parseBehaviorValue(behaviorTable[b].kind, value)
		if err != nil {
			return nil, WrapInvalidConfigurationError(
				err,
				"Invalid value %q for behavior %q",
				value,
				name)
		}
		values[b] = v
	}
	return &Behaviors{values: values}, nil
}

func parseBehaviorValue(kind behaviorKind, value string) (uint64, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindBool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return 0, err
		}
		if v {
			return 1, nil
		}
		return 0, nil
	case kindHasher:
		return lookupName(hasherNames, value)
	case kindDistribution:
		return lookupName(distributionNames, value)
	default:
		return strconv.ParseUint(value, 10, 64)
	}
}

func lookupName(names []string, value string) (uint64, error) {
	for i, name := range names {
		if name == value {
			return uint64(i), nil
		}
	}
	return 0, NewInvalidConfigurationError(
		"%q is not one of %s",
		value,
		strings.Join(names, ", "))
}

// Returns the behavior's value, and whether it was set.
func (b *Behaviors) Get(behavior Behavior) (uint64, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.values[behavior]
	return v, ok
}

// Returns the hasher set for "hash", or HashDefault.
func (b *Behaviors) Hash() Hasher {
	v, _ := b.Get(BehaviorHash)
	return Hasher(v)
}

// Returns the distribution, or DistributionModula.
func (b *Behaviors) Distribution() Distribution {
	v, _ := b.Get(BehaviorDistribution)
	return Distribution(v)
}

// Returns the millisecond behavior as a duration, or zero if unset.
func (b *Behaviors) Duration(behavior Behavior) time.Duration {
	v, _ := b.Get(behavior)
	return time.Duration(v) * time.Millisecond
}

func (b *Behaviors) Len() int {
	if b == nil {
		return 0
	}
	return len(b.values)
}

// Translates the behaviors back into their name -> string value form.
// NewBehaviors(b.Names()) yields an equal set.
func (b *Behaviors) Names() map[string]string {
	res := make(map[string]string, b.Len())
	if b == nil {
		return res
	}

	for behavior, v := range b.values {
		info := behaviorTable[behavior]
		switch info.kind {
		case kindBool:
			res[info.name] = strconv.FormatBool(v != 0)
		case kindHasher:
			res[info.name] = Hasher(v).String()
		case kindDistribution:
			res[info.name] = Distribution(v).String()
		default:
			res[info.name] = strconv.FormatUint(v, 10)
		}
	}
	return res
}

// Returns the names of all known behaviors, sorted.
func BehaviorNames() []string {
	names := make([]string, 0, len(behaviorsByName))
	for name := range behaviorsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
