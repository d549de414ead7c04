package mmu

import (
	"github.com/google/pprof/profile"

	"memcore/arch"
	"memcore/physmem"
	"memcore/types"
)

// Profile walks reqs exactly like Walk, but also returns a pprof profile
// recording one sample per terminating level, each valued by how many of
// the batch's translations bottomed out there. It exists for diagnosing
// why a particular DTB or batch shape is slow — e.g. a batch that
// resolves mostly at large-page levels versus one forced all the way to
// the finest level, which costs the walker an extra physical-read round
// (spec §4.2: "at most one round per level").
func Profile[C any](pm physmem.PhysicalMemory, spec arch.Spec, dtb types.Address, reqs []Request[C]) ([]Result[C], *profile.Profile, error) {
	results := Walk(pm, spec, dtb, reqs)

	m := spec.MMU
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "translations", Unit: "count"}},
		PeriodType: &profile.ValueType{Type: "level", Unit: "page_size_level"},
		Period:     1,
	}

	counts := make(map[types.PageSizeLevel]int64)
	var failures int64
	for _, r := range results {
		if r.Err != nil {
			failures++
			continue
		}
		counts[r.Paddr.Meta.Level]++
	}

	funcs := make(map[types.PageSizeLevel]*profile.Function)
	var nextID uint64 = 1
	funcFor := func(level types.PageSizeLevel, name string) *profile.Function {
		if fn, ok := funcs[level]; ok {
			return fn
		}
		fn := &profile.Function{ID: nextID, Name: name}
		nextID++
		funcs[level] = fn
		prof.Function = append(prof.Function, fn)
		return fn
	}

	for depth := 0; depth < m.NumLevels(); depth++ {
		level := types.PageSizeLevel(m.PageSizeLevel(depth))
		n, ok := counts[level]
		if !ok {
			continue
		}
		fn := funcFor(level, levelName(level))
		loc := &profile.Location{ID: uint64(len(prof.Location) + 1), Line: []profile.Line{{Function: fn}}}
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{n},
		})
	}
	if failures > 0 {
		fn := funcFor(types.UnknownPageLevel, "translation_failure")
		loc := &profile.Location{ID: uint64(len(prof.Location) + 1), Line: []profile.Line{{Function: fn}}}
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{failures},
		})
	}

	return results, prof, nil
}

func levelName(level types.PageSizeLevel) string {
	if level == types.UnknownPageLevel {
		return "unknown"
	}
	if level == 0 {
		return "leaf_4k"
	}
	return "large_page"
}
