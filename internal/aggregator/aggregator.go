// Package aggregator groups validated rows into the regulatory output tables.
// Every function is pure and returns rows in a fixed order: tract, then
// technology, download and upload, all ascending.
package aggregator

import (
	"sort"

	"bdcsubs/internal/aggregate"
	"bdcsubs/internal/subscriber"
)

// VoiceServiceType is the service type written for every voice row
const VoiceServiceType = 1

// TechMapping rewrites a technology code before grouping
type TechMapping func(int) int

// Identity keeps technology codes unchanged
func Identity(tech int) int { return tech }

// Map477 folds the PAL/educational wireless code into generic licensed wireless
func Map477(tech int) int {
	if tech == subscriber.TechWirelessPAL {
		return subscriber.TechWirelessUnlicensed
	}
	return tech
}

// mapVoiceState folds every wireless subtype into 70 for the state summary
func mapVoiceState(tech int) int {
	if tech >= subscriber.TechWirelessPAL {
		return subscriber.TechWirelessUnlicensed
	}
	return tech
}

// Key identifies one output row
type Key struct {
	Tract      string
	Technology int
	Download   float64
	Upload     float64
}

func (k Key) less(o Key) bool {
	if k.Tract != o.Tract {
		return k.Tract < o.Tract
	}
	if k.Technology != o.Technology {
		return k.Technology < o.Technology
	}
	if k.Download != o.Download {
		return k.Download < o.Download
	}
	return k.Upload < o.Upload
}

// Row is one data aggregate
type Row struct {
	Key
	Total       int
	Residential int
}

// VoiceRow is one voice aggregate
type VoiceRow struct {
	Tract       string
	ServiceType int
	Total       int
	Residential int
}

// TechTotal is the voice line count of one technology in one state
type TechTotal struct {
	Technology int
	Total      int
}

// StateVoice is the voice summary of one state
type StateVoice struct {
	State string
	Techs []TechTotal
}

// grouper sums rows by key and emits them sorted
type grouper struct {
	rows map[Key]*Row
}

func newGrouper() *grouper {
	return &grouper{rows: make(map[Key]*Row)}
}

func (g *grouper) add(k Key, total, residential int) {
	r, ok := g.rows[k]
	if !ok {
		r = &Row{Key: k}
		g.rows[k] = r
	}
	r.Total += total
	r.Residential += residential
}

func (g *grouper) sorted() []Row {
	out := make([]Row, 0, len(g.rows))
	for _, r := range g.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}

// Data groups subscriber records into the data aggregate. Voice-only rows
// (technology 1) are excluded. Residential is the row count less business
// customers.
func Data(records []subscriber.Record, mapping TechMapping) []Row {
	g := newGrouper()
	for _, r := range records {
		if r.Technology <= subscriber.TechVoice {
			continue
		}
		k := Key{Tract: r.Tract, Technology: mapping(r.Technology), Download: r.Download, Upload: r.Upload}
		g.add(k, 1, 1-r.BusinessCount())
	}
	return g.sorted()
}

// Regulatory is Data with the 71 to 70 mapping applied
func Regulatory(records []subscriber.Record) []Row {
	return Data(records, Map477)
}

// FromAggregates regroups pre-aggregated records, summing duplicate keys
func FromAggregates(records []aggregate.Record, mapping TechMapping) []Row {
	g := newGrouper()
	for _, r := range records {
		k := Key{Tract: r.Tract, Technology: mapping(r.Technology), Download: r.Download, Upload: r.Upload}
		g.add(k, r.Total, r.Residential)
	}
	return g.sorted()
}

// RegulatoryFromAggregates is FromAggregates with the 71 to 70 mapping applied
func RegulatoryFromAggregates(records []aggregate.Record) []Row {
	return FromAggregates(records, Map477)
}

// Voice sums voice lines per tract. It returns nil when no record carries a
// voice line, in which case no voice output is written.
func Voice(records []subscriber.Record) []VoiceRow {
	byTract := make(map[string]*VoiceRow)
	for _, r := range records {
		if r.VoiceLines <= 0 {
			continue
		}
		v, ok := byTract[r.Tract]
		if !ok {
			v = &VoiceRow{Tract: r.Tract, ServiceType: VoiceServiceType}
			byTract[r.Tract] = v
		}
		v.Total += r.VoiceLines
		v.Residential += r.VoiceLines - r.BusinessCount()*r.VoiceLines
	}
	if len(byTract) == 0 {
		return nil
	}

	out := make([]VoiceRow, 0, len(byTract))
	for _, v := range byTract {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tract < out[j].Tract })
	return out
}

// VoiceStates sums voice lines per state prefix and technology
func VoiceStates(records []subscriber.Record) []StateVoice {
	totals := make(map[string]map[int]int)
	for _, r := range records {
		if r.VoiceLines <= 0 {
			continue
		}
		state := r.StatePrefix()
		if totals[state] == nil {
			totals[state] = make(map[int]int)
		}
		totals[state][mapVoiceState(r.Technology)] += r.VoiceLines
	}
	if len(totals) == 0 {
		return nil
	}

	states := make([]string, 0, len(totals))
	for s := range totals {
		states = append(states, s)
	}
	sort.Strings(states)

	out := make([]StateVoice, 0, len(states))
	for _, s := range states {
		sv := StateVoice{State: s}
		for tech, total := range totals[s] {
			sv.Techs = append(sv.Techs, TechTotal{Technology: tech, Total: total})
		}
		sort.Slice(sv.Techs, func(i, j int) bool { return sv.Techs[i].Technology < sv.Techs[j].Technology })
		out = append(out, sv)
	}
	return out
}
