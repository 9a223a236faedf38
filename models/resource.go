package models

import (
	"math"
	"sync/atomic"
	"time"
)

// ResourceKind tags the concrete payload a Resource carries, per the "tagged
// variant over concrete payloads" design note (§9): the store holds Resource
// uniformly and callers match on Kind rather than through a virtual base.
type ResourceKind int

const (
	KindMetaTile ResourceKind = iota
	KindMeshAggregate
	KindTexture
	KindBoundLayerConfig
	KindAuthConfig
	KindMapConfig
	KindTilesetMapping
	KindFont
	KindGeodata
)

func (k ResourceKind) String() string {
	switch k {
	case KindMetaTile:
		return "MetaTile"
	case KindMeshAggregate:
		return "MeshAggregate"
	case KindTexture:
		return "Texture"
	case KindBoundLayerConfig:
		return "BoundLayerConfig"
	case KindAuthConfig:
		return "AuthConfig"
	case KindMapConfig:
		return "MapConfig"
	case KindTilesetMapping:
		return "TilesetMapping"
	case KindFont:
		return "Font"
	case KindGeodata:
		return "Geodata"
	default:
		return "Unknown"
	}
}

// State is the resource lifecycle state machine (spec.md §3 "Resource").
type State int32

const (
	StateInitializing State = iota
	StateDownloading
	StateDownloaded
	StateFinalizing
	StateReady
	StateErrorRetry
	StateErrorFatal
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateDownloading:
		return "Downloading"
	case StateDownloaded:
		return "Downloaded"
	case StateFinalizing:
		return "Finalizing"
	case StateReady:
		return "Ready"
	case StateErrorRetry:
		return "ErrorRetry"
	case StateErrorFatal:
		return "ErrorFatal"
	default:
		return "Unknown"
	}
}

// Validity is the tri-valued readiness outcome returned to callers.
type Validity int

const (
	Indeterminate Validity = iota
	Valid
	Invalid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "Valid"
	case Invalid:
		return "Invalid"
	default:
		return "Indeterminate"
	}
}

// PriorityAlwaysInBudget is reserved for resources that must never be
// evicted (the root tile's meta-tile chain, in-flight downloads' upstream
// dependencies, etc.)
var PriorityAlwaysInBudget = math.Inf(1)

// Resource is one entry in the resource store, keyed externally by its
// canonical URL. All mutable scalar fields are accessed atomically so the
// render thread can read priority/lastAccessTick/state without taking the
// store's mutex (§5 "Shared data discipline").
type Resource struct {
	Key  string
	Kind ResourceKind

	state   atomic.Int32
	priority atomic.Int64 // float64 bits via math.Float64bits
	lastAccessTick atomic.Uint64

	RamBytes int64
	GPUBytes int64

	// Payload is set exactly once, by the decode step, immediately before
	// the transition to StateFinalizing->StateReady publishes it. Readers
	// must only dereference it after observing State()==StateReady.
	Payload any

	// FetchHandle is the opaque in-flight fetch's cancel/abort handle, valid
	// only while State() == StateDownloading.
	FetchHandle any

	RetryAt  time.Time // when State()==StateErrorRetry, back-off expiry
	RetryCount int

	CreatedAt time.Time
}

func NewResource(key string, kind ResourceKind) *Resource {
	r := &Resource{Key: key, Kind: kind, CreatedAt: time.Now()}
	r.state.Store(int32(StateInitializing))
	return r
}

func (r *Resource) State() State { return State(r.state.Load()) }
func (r *Resource) SetState(s State) { r.state.Store(int32(s)) }

func (r *Resource) Priority() float64 {
	return math.Float64frombits(uint64(r.priority.Load()))
}

// UpdatePriority sets priority = max(current, p), accumulating within a tick.
func (r *Resource) UpdatePriority(p float64) {
	for {
		cur := r.priority.Load()
		curF := math.Float64frombits(uint64(cur))
		if p <= curF {
			return
		}
		if r.priority.CompareAndSwap(cur, int64(math.Float64bits(p))) {
			return
		}
	}
}

func (r *Resource) ResetPriority() { r.priority.Store(0) }

func (r *Resource) LastAccessTick() uint64 { return r.lastAccessTick.Load() }

func (r *Resource) Touch(tick uint64) { r.lastAccessTick.Store(tick) }

// Validity implements the mapping in spec.md §4.2, including the ErrorRetry
// back-off flip to Indeterminate.
func (r *Resource) Validity() Validity {
	switch r.State() {
	case StateReady:
		return Valid
	case StateErrorFatal:
		return Invalid
	case StateErrorRetry:
		return Indeterminate // back-off pending or elapsed, never Valid/Invalid
	default:
		return Indeterminate
	}
}
