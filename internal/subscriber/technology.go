package subscriber

import (
	"strconv"
	"strings"
)

// Technology codes of the regulatory taxonomy
const (
	TechVoice              = 1
	TechEthernet           = 10
	TechADSL2              = 11
	TechCable              = 43
	TechFiber              = 50
	TechWirelessUnlicensed = 70
	TechWirelessPAL        = 71
	TechWirelessGAA        = 72
)

var technologyLabels = map[string]int{
	"wireless_unlicensed":  TechWirelessUnlicensed,
	"wireless_gaa":         TechWirelessGAA,
	"wireless_pal":         TechWirelessPAL,
	"wireless_educational": TechWirelessPAL,
	"fiber":                TechFiber,
	"cable":                TechCable,
	"ethernet":             TechEthernet,
	"adsl2":                TechADSL2,
	"voip":                 TechVoice,
}

var technologyCodes = map[int]bool{
	TechVoice:              true,
	TechEthernet:           true,
	TechADSL2:              true,
	TechCable:              true,
	TechFiber:              true,
	TechWirelessUnlicensed: true,
	TechWirelessPAL:        true,
	TechWirelessGAA:        true,
}

// ParseTechnology maps a technology label or numeric code to its code.
// Unknown values are rejected rather than defaulted.
func ParseTechnology(value string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if code, ok := technologyLabels[v]; ok {
		return code, true
	}
	if code, err := strconv.Atoi(v); err == nil && ValidTechnology(code) {
		return code, true
	}
	return 0, false
}

// ValidTechnology reports whether code is a member of the code set
func ValidTechnology(code int) bool {
	return technologyCodes[code]
}
