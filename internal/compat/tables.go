package compat

// Weights of the six dimensions in the overall score. They sum to 1.
var Weights = Scores{
	Schedule:    0.20,
	Lifestyle:   0.25,
	Preferences: 0.20,
	Location:    0.15,
	Budget:      0.10,
	Services:    0.10,
}

// Neutral is the score used whenever an input needed for a comparison is absent.
const Neutral = 50.0

// compatibleSchedules lists, per work schedule type, the types it gets along with.
// The table is consulted in both directions.
var compatibleSchedules = map[string][]string{
	"day-shift":   {"day-shift", "remote", "freelancer"},
	"night-shift": {"night-shift", "irregular"},
	"remote":      {"remote", "day-shift", "freelancer"},
	"freelancer":  {"freelancer", "remote", "day-shift"},
	"student":     {"student", "freelancer", "remote"},
	"irregular":   {"irregular", "freelancer", "night-shift"},
}

var noiseScale = map[string]int{
	"very-quiet": 1,
	"quiet":      2,
	"moderate":   3,
	"lively":     4,
}

// "relaxed" sits one step below "moderate".
var cleanlinessScale = map[string]int{
	"relaxed":    0,
	"moderate":   1,
	"clean":      2,
	"very-clean": 3,
}

// nearbyCities is a cluster of cities considered close to each other.
// Membership is checked by substring so "south san francisco" still counts.
var nearbyCities = []string{
	"san francisco",
	"oakland",
	"berkeley",
	"palo alto",
	"mountain view",
	"san mateo",
}

// Reason thresholds.
const (
	scheduleReasonMin    = 75
	lifestyleReasonMin   = 80
	preferencesReasonMin = 80
	locationReasonMin    = 75
	budgetReasonMin      = 70
	servicesReasonMin    = 70
)
