package cache

// Keyer generates cache keys for the artifacts the splitter produces.
type Keyer interface {
	// ResultKey identifies the split result of one readout under one
	// splitter configuration.
	ResultKey(readoutHash, configHash string) string

	// TopologyKey identifies a rendered topology drawing.
	TopologyKey(topologyHash, format string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey returns "result:<hash>".
func (DefaultKeyer) ResultKey(readoutHash, configHash string) string {
	return hashKey("result", readoutHash, configHash)
}

// TopologyKey returns "topology:<hash>".
func (DefaultKeyer) TopologyKey(topologyHash, format string) string {
	return hashKey("topology", topologyHash, format)
}

// ScopedKeyer prefixes every key of an inner keyer, so that several
// detectors or tenants can share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ResultKey(readoutHash, configHash string) string {
	return k.prefix + k.inner.ResultKey(readoutHash, configHash)
}

func (k *ScopedKeyer) TopologyKey(topologyHash, format string) string {
	return k.prefix + k.inner.TopologyKey(topologyHash, format)
}
