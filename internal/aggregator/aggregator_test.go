package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bdcsubs/internal/aggregate"
	"bdcsubs/internal/subscriber"
)

func rec(tract string, tech int, down, up float64, business bool, lines int) subscriber.Record {
	return subscriber.Record{
		Tract:      tract,
		Technology: tech,
		Download:   down,
		Upload:     up,
		Business:   business,
		VoiceLines: lines,
	}
}

func TestData(t *testing.T) {
	records := []subscriber.Record{
		rec("48453001200", 50, 100, 20, false, 0),
		rec("48453001100", 71, 25, 3, true, 0),
		rec("48453001100", 50, 100, 20, false, 0),
		rec("48453001100", 50, 100, 20, true, 0),
		rec("48453001100", 70, 25, 3, false, 0),
		rec("48453001100", 1, 0.5, 0.5, false, 2),
		rec("48453001100", 50, 50, 20, false, 0),
	}

	got := Data(records, Identity)
	assert.Equal(t, []Row{
		{Key{"48453001100", 50, 50, 20}, 1, 1},
		{Key{"48453001100", 50, 100, 20}, 2, 1},
		{Key{"48453001100", 70, 25, 3}, 1, 1},
		{Key{"48453001100", 71, 25, 3}, 1, 0},
		{Key{"48453001200", 50, 100, 20}, 1, 1},
	}, got)

	reg := Regulatory(records)
	assert.Equal(t, []Row{
		{Key{"48453001100", 50, 50, 20}, 1, 1},
		{Key{"48453001100", 50, 100, 20}, 2, 1},
		{Key{"48453001100", 70, 25, 3}, 2, 1},
		{Key{"48453001200", 50, 100, 20}, 1, 1},
	}, reg)
	for _, r := range reg {
		assert.NotEqual(t, 71, r.Technology)
	}
}

func TestData_OrderIsIndependentOfInputOrder(t *testing.T) {
	a := []subscriber.Record{
		rec("2", 50, 10, 1, false, 0),
		rec("1", 43, 10, 1, false, 0),
		rec("1", 43, 5, 1, false, 0),
		rec("1", 43, 5, 0.5, false, 0),
	}
	b := []subscriber.Record{a[3], a[1], a[0], a[2]}
	assert.Equal(t, Data(a, Identity), Data(b, Identity))
	assert.Equal(t, Key{"1", 43, 5, 0.5}, Data(a, Identity)[0].Key)
}

func TestFromAggregates(t *testing.T) {
	records := []aggregate.Record{
		{Tract: "06037101110", Technology: 71, Download: 25, Upload: 3, Total: 4, Residential: 3},
		{Tract: "06037101110", Technology: 70, Download: 25, Upload: 3, Total: 6, Residential: 6},
		{Tract: "06037101100", Technology: 50, Download: 1000, Upload: 1000, Total: 10, Residential: 2},
	}

	assert.Len(t, FromAggregates(records, Identity), 3)
	assert.Equal(t, []Row{
		{Key{"06037101100", 50, 1000, 1000}, 10, 2},
		{Key{"06037101110", 70, 25, 3}, 10, 9},
	}, RegulatoryFromAggregates(records))
}

func TestVoice(t *testing.T) {
	assert.Nil(t, Voice([]subscriber.Record{rec("48453001100", 50, 100, 20, false, 0)}))
	assert.Nil(t, VoiceStates(nil))

	records := []subscriber.Record{
		rec("48453001100", 50, 100, 20, false, 2),
		rec("48453001100", 1, 1, 1, true, 3),
		rec("48453001200", 72, 25, 3, false, 1),
		rec("48453001200", 50, 100, 20, false, 0),
		rec("35001000100", 71, 25, 3, true, 4),
	}

	assert.Equal(t, []VoiceRow{
		{Tract: "35001000100", ServiceType: 1, Total: 4, Residential: 0},
		{Tract: "48453001100", ServiceType: 1, Total: 5, Residential: 2},
		{Tract: "48453001200", ServiceType: 1, Total: 1, Residential: 1},
	}, Voice(records))

	assert.Equal(t, []StateVoice{
		{State: "35", Techs: []TechTotal{{70, 4}}},
		{State: "48", Techs: []TechTotal{{1, 3}, {50, 2}, {70, 1}}},
	}, VoiceStates(records))
}
