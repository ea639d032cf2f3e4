package crossfilter

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/hupe1980/crossfilter/internal/filter"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot captures the filter state of a session: the committed envelope
// and its generation. Data is never serialized; restoring a snapshot against
// the same dataset reproduces the same aggregates.
type Snapshot struct {
	Filters    []filter.Encoded `json:"filters"`
	Generation uint64           `json:"generation"`
}

// Marshal encodes the snapshot for external session storage.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// ParseSnapshot decodes a snapshot produced by Marshal.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Snapshot returns the current committed filter state.
func (e *Engine) Snapshot() Snapshot {
	env, gen := e.filters.Snapshot()
	return Snapshot{Filters: env.Encode(), Generation: gen}
}

// Restore reapplies a snapshot's envelope as a new commit. The restored
// state gets a fresh generation; every subscribed view re-aggregates against
// it.
func (e *Engine) Restore(s Snapshot) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	env, err := filter.Decode(s.Filters)
	if err != nil {
		e.logger.LogRestore(len(s.Filters), 0, err)
		return translateRequestError(err)
	}

	// Validate against the store before committing anything: a snapshot
	// from a different dataset must not half-apply.
	for _, field := range env.Fields() {
		col, cerr := e.store.Column(field)
		if cerr != nil {
			e.logger.LogRestore(len(s.Filters), 0, cerr)
			return translateRequestError(cerr)
		}
		if _, cerr = env[field].Compile(col); cerr != nil {
			e.logger.LogRestore(len(s.Filters), 0, cerr)
			return translateRequestError(cerr)
		}
	}

	e.filters.Restore(env)
	e.logger.LogRestore(len(s.Filters), e.filters.Generation(), nil)
	return nil
}
