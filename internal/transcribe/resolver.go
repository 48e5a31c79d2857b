package transcribe

import (
	"weft/internal/interchange"
	"weft/internal/opentime"
)

// resolution is the outcome of walking one source clip's reference chain.
type resolution struct {
	// Dangling is set on missing mobs, missing slots, broken chains, and
	// cycles; the caller substitutes a placeholder clip.
	Dangling bool
	// Name is the display name found on the first master mob in the chain.
	Name string
	// SourceID identifies the underlying source for write-path dedup: the
	// master mob when present, else the terminal source mob.
	SourceID interchange.MobID
	// Path is the essence locator from the terminal source mob.
	Path string
	// Available is the essence window on the chain grid, including the
	// source mob's start timecode offset.
	Available opentime.TimeRange
	// Range is the clip's trimmed range composed through every hop.
	Range opentime.TimeRange
	// RateExact is false when a hop crossed edit rates that no common grid
	// reconciles; the caller records a rate diagnostic.
	RateExact bool
}

// chainResult memoizes the part of a resolution independent of the referring
// clip's own trim: the terminal essence plus the accumulated offset from the
// (mob, slot) pair down to it. rate is the chain grid: the terminal essence
// rate, widened to a common rate whenever a hop crosses edit rates.
type chainResult struct {
	dangling  bool
	name      string
	sourceID  interchange.MobID
	path      string
	rate      opentime.Rational
	offset    int64
	available opentime.TimeRange
	rateExact bool
}

type chainKey struct {
	mob  interchange.MobID
	slot int
}

// resolver walks mob reference chains with memoization and explicit cycle
// tracking. One resolver serves one conversion run.
type resolver struct {
	file     *interchange.File
	memo     map[chainKey]chainResult
	rec      *recorder
	fallback opentime.Rational
}

func newResolver(file *interchange.File, rec *recorder, fallback opentime.Rational) *resolver {
	return &resolver{
		file:     file,
		memo:     make(map[chainKey]chainResult),
		rec:      rec,
		fallback: fallback,
	}
}

// resolve follows clip's chain to essence. The context rate is the edit rate
// of the slot the clip sits in.
func (r *resolver) resolve(clip *interchange.SourceClip, rate opentime.Rational) resolution {
	chain := r.resolveChain(clip.Mob, clip.SlotID, make(map[chainKey]bool))
	if chain.dangling {
		return resolution{
			Dangling: true,
			Name:     chain.name,
			Range:    opentime.NewRange(clip.Start, clip.Len, rate),
		}
	}

	// Rebase the trim onto the grid both rates reconcile on. Rescaling onto
	// the common grid is always exact; only an irreconcilable pair falls back
	// with truncation.
	trim := opentime.NewRange(clip.Start, clip.Len, rate)
	exact := chain.rateExact
	if !rate.Equal(chain.rate) {
		common, ok := opentime.CommonRate(rate, chain.rate, r.fallback)
		start, okStart := trim.Start.Rescale(common)
		dur, okDur := trim.Duration.Rescale(common)
		exact = exact && ok && okStart && okDur
		trim = opentime.TimeRange{Start: start, Duration: dur}
	}
	trim.Start = trim.Start.Add(opentime.FromFrames(chain.offset, chain.rate))
	trim = trim.Clamp(chain.available)

	return resolution{
		Name:      chain.name,
		SourceID:  chain.sourceID,
		Path:      chain.path,
		Available: chain.available,
		Range:     trim,
		RateExact: exact,
	}
}

// resolveChain resolves the content of one mob slot down to essence,
// accumulating the offset each hop's own source clip applies.
func (r *resolver) resolveChain(id interchange.MobID, slotID int, visited map[chainKey]bool) chainResult {
	key := chainKey{mob: id, slot: slotID}
	if cached, ok := r.memo[key]; ok {
		return cached
	}
	if visited[key] {
		r.rec.reference(id.String(), "reference cycle through slot %d", slotID)
		return r.remember(key, chainResult{dangling: true})
	}
	visited[key] = true

	mob := r.file.Mob(id)
	if mob == nil {
		return r.remember(key, chainResult{dangling: true})
	}

	if mob.Kind == interchange.SourceMob {
		return r.remember(key, r.terminal(mob, slotID))
	}

	slot := mob.Slot(slotID)
	if slot == nil {
		r.rec.reference(id.String(), "slot %d not found on %s mob", slotID, mob.Kind)
		return r.remember(key, chainResult{dangling: true, name: mob.Name})
	}
	next := firstSourceClip(slot.Segment)
	if next == nil {
		r.rec.reference(id.String(), "%s mob slot %d has no onward source clip", mob.Kind, slotID)
		return r.remember(key, chainResult{dangling: true, name: mob.Name})
	}

	sub := r.resolveChain(next.Mob, next.SlotID, visited)
	if sub.dangling {
		result := chainResult{dangling: true, name: sub.name}
		if result.name == "" {
			result.name = mob.Name
		}
		return r.remember(key, result)
	}

	// Compose this hop's window into the chain grid. A rate crossing widens
	// the grid to the common rate of both sides, keeping frame boundaries.
	window := opentime.NewRange(next.Start, next.Len, slot.EditRate)
	exact := sub.rateExact
	chainRate := sub.rate
	if !slot.EditRate.Equal(sub.rate) {
		common, ok := opentime.CommonRate(slot.EditRate, sub.rate, r.fallback)
		start, okStart := window.Start.Rescale(common)
		dur, okDur := window.Duration.Rescale(common)
		exact = exact && ok && okStart && okDur
		window = opentime.TimeRange{Start: start, Duration: dur}
		chainRate = common
	}
	window.Start = window.Start.Add(opentime.FromFrames(sub.offset, sub.rate))
	available := window.Clamp(sub.available)

	result := chainResult{
		name:      sub.name,
		sourceID:  sub.sourceID,
		path:      sub.path,
		rate:      chainRate,
		offset:    window.Start.Value,
		available: available,
		rateExact: exact,
	}
	if mob.Kind == interchange.MasterMob {
		result.name = mob.Name
		result.sourceID = mob.ID
	}
	return r.remember(key, result)
}

// terminal builds the chain result for a source mob holding essence.
func (r *resolver) terminal(mob *interchange.Mob, slotID int) chainResult {
	if mob.Descriptor == nil {
		r.rec.reference(mob.ID.String(), "source mob has no essence descriptor")
		return chainResult{dangling: true, name: mob.Name}
	}
	rate := mob.Descriptor.SampleRate
	if rate.IsZero() {
		if slot := mob.Slot(slotID); slot != nil {
			rate = slot.EditRate
		}
	}
	var start int64
	if tc := mob.StartTimecode(); tc != nil {
		start = tc.Start
	}
	return chainResult{
		name:      mob.Name,
		sourceID:  mob.ID,
		path:      mob.Descriptor.Path,
		rate:      rate,
		offset:    start,
		available: opentime.NewRange(start, mob.Descriptor.Length, rate),
		rateExact: true,
	}
}

func (r *resolver) remember(key chainKey, result chainResult) chainResult {
	r.memo[key] = result
	return result
}

// firstSourceClip finds the onward reference in a slot's top-level segment,
// looking through sequences, effect wrappers, and selectors.
func firstSourceClip(seg interchange.Segment) *interchange.SourceClip {
	switch s := seg.(type) {
	case *interchange.SourceClip:
		return s
	case *interchange.Sequence:
		for _, item := range s.Items {
			if clip := firstSourceClip(item); clip != nil {
				return clip
			}
		}
	case *interchange.OperationGroup:
		for _, input := range s.Inputs {
			if clip := firstSourceClip(input); clip != nil {
				return clip
			}
		}
	case *interchange.Selector:
		if clip := firstSourceClip(s.Selected); clip != nil {
			return clip
		}
	}
	return nil
}
