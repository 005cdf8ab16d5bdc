// Package compat computes roommate compatibility between two profiles.
//
// Every dimension is scored on a 0-100 scale. When the data needed for a
// comparison is missing (or cannot be parsed) the comparison falls back to
// Neutral instead of failing, so scoring is total over all inputs.
package compat

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/roomie-matcher/internal/profile"
)

// Scores holds one value per compatibility dimension.
type Scores struct {
	Schedule    float64 `json:"schedule"`
	Lifestyle   float64 `json:"lifestyle"`
	Preferences float64 `json:"preferences"`
	Location    float64 `json:"location"`
	Budget      float64 `json:"budget"`
	Services    float64 `json:"services"`
}

// Weighted combines the sub-scores with Weights.
func (s Scores) Weighted() float64 {
	return s.Schedule*Weights.Schedule +
		s.Lifestyle*Weights.Lifestyle +
		s.Preferences*Weights.Preferences +
		s.Location*Weights.Location +
		s.Budget*Weights.Budget +
		s.Services*Weights.Services
}

// Result is the rule-based compatibility of a pair of profiles.
type Result struct {
	Scores  Scores
	Overall float64
	Reasons []string
}

// Score compares a and b on every dimension.
func Score(a, b *profile.Profile) Result {
	scores := Scores{
		Schedule:    Schedule(a, b),
		Lifestyle:   Lifestyle(a, b),
		Preferences: Preferences(a, b),
		Location:    Location(a, b),
		Budget:      Budget(a, b),
		Services:    Services(a, b),
	}

	return Result{
		Scores:  scores,
		Overall: scores.Weighted(),
		Reasons: Reasons(a, b, scores),
	}
}

// Schedule scores work schedule type (40%), sleep alignment (40%) and
// work-from-home alignment (20%). A missing schedule section makes every
// component neutral.
func Schedule(a, b *profile.Profile) float64 {
	var sa, sb profile.ScheduleInfo
	if a != nil && a.ScheduleInfo != nil {
		sa = *a.ScheduleInfo
	}
	if b != nil && b.ScheduleInfo != nil {
		sb = *b.ScheduleInfo
	}

	score := workScheduleScore(sa.WorkSchedule, sb.WorkSchedule)*0.4 +
		sleepScore(sa, sb)*0.4 +
		workFromHomeScore(sa.WorkFromHome, sb.WorkFromHome)*0.2

	return math.Min(100, score)
}

func workScheduleScore(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return Neutral
	}
	if s1 == s2 {
		return 100
	}
	if slices.Contains(compatibleSchedules[s1], s2) || slices.Contains(compatibleSchedules[s2], s1) {
		return 75
	}
	return 25
}

// sleepScore needs all four times; any missing or malformed time is neutral.
func sleepScore(a, b profile.ScheduleInfo) float64 {
	wake1, ok1 := minutesSinceMidnight(a.WakeUpTime)
	wake2, ok2 := minutesSinceMidnight(b.WakeUpTime)
	bed1, ok3 := minutesSinceMidnight(a.BedTime)
	bed2, ok4 := minutesSinceMidnight(b.BedTime)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Neutral
	}

	return (timeDiffScore(wake1, wake2) + timeDiffScore(bed1, bed2)) / 2
}

// timeDiffScore loses 50 points per two hours of difference.
func timeDiffScore(m1, m2 int) float64 {
	diff := math.Abs(float64(m1 - m2))
	return math.Max(0, 100-(diff/120)*50)
}

func minutesSinceMidnight(hhmm string) (int, bool) {
	hours, minutes, found := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !found {
		return 0, false
	}

	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}

	return h*60 + m, true
}

func workFromHomeScore(w1, w2 *bool) float64 {
	if w1 == nil || w2 == nil {
		return Neutral
	}
	if *w1 == *w2 {
		return 100
	}
	return 60
}

// Lifestyle scores noise (35%), cleanliness (35%), pets (20%) and smoking (10%).
// It is neutral when either side has no preferences section.
func Lifestyle(a, b *profile.Profile) float64 {
	p1, p2 := preferencesOf(a), preferencesOf(b)
	if p1 == nil || p2 == nil {
		return Neutral
	}

	score := ordinalScore(noiseScale, p1.NoiseLevel, p2.NoiseLevel, 25, 20)*0.35 +
		ordinalScore(cleanlinessScale, p1.CleanlinessLevel, p2.CleanlinessLevel, 30, 30)*0.35 +
		boolScore(p1.PetFriendly, p2.PetFriendly, 40)*0.20 +
		smokingScore(p1.SmokingTolerance, p2.SmokingTolerance)*0.10

	return math.Min(100, score)
}

// ordinalScore loses step points per scale step, never dropping below floor.
// Values that are missing or not on the scale are neutral.
func ordinalScore(scale map[string]int, v1, v2 string, step, floor float64) float64 {
	o1, ok1 := scale[v1]
	o2, ok2 := scale[v2]
	if !ok1 || !ok2 {
		return Neutral
	}

	diff := math.Abs(float64(o1 - o2))
	return math.Max(floor, 100-diff*step)
}

func boolScore(v1, v2 *bool, mismatch float64) float64 {
	if v1 == nil || v2 == nil {
		return Neutral
	}
	if *v1 == *v2 {
		return 100
	}
	return mismatch
}

func smokingScore(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return Neutral
	}
	if s1 == s2 {
		return 100
	}
	if (s1 == profile.SmokingNone && s2 == profile.SmokingOutdoorOnly) ||
		(s1 == profile.SmokingOutdoorOnly && s2 == profile.SmokingNone) {
		return 80
	}
	return 20
}

// Preferences scores LGBTQ+ inclusivity (40%), gender preference (40%) and
// housing type (20%). It is neutral when either side has no preferences section.
func Preferences(a, b *profile.Profile) float64 {
	p1, p2 := preferencesOf(a), preferencesOf(b)
	if p1 == nil || p2 == nil {
		return Neutral
	}

	score := boolScore(p1.LGBTQInclusive, p2.LGBTQInclusive, 10)*0.40 +
		genderPreferenceScore(p1.GenderPreference, p2.GenderPreference)*0.40 +
		housingTypeScore(housingOf(a), housingOf(b))*0.20

	return math.Min(100, score)
}

func genderPreferenceScore(g1, g2 string) float64 {
	if g1 == "" || g2 == "" {
		return Neutral
	}

	switch {
	case g1 == profile.GenderNoPreference && g2 == profile.GenderNoPreference:
		return 100
	case g1 == profile.GenderNoPreference || g2 == profile.GenderNoPreference:
		return 80
	case g1 == g2:
		return 90
	default:
		return 40
	}
}

func housingTypeScore(h1, h2 *profile.HousingInfo) float64 {
	if h1 == nil || h2 == nil || h1.HousingType == "" || h2.HousingType == "" {
		return Neutral
	}
	if h1.HousingType == h2.HousingType {
		return 100
	}
	return 70
}

// Location scores the current city (60%) and how well each side's preferred
// location covers the other's city (40%). It is neutral when either current
// location is unknown.
func Location(a, b *profile.Profile) float64 {
	loc1, loc2 := locationOf(a), locationOf(b)
	if loc1 == "" || loc2 == "" {
		return Neutral
	}

	var pref1, pref2 string
	if h := housingOf(a); h != nil {
		pref1 = h.PreferredLocation
	}
	if h := housingOf(b); h != nil {
		pref2 = h.PreferredLocation
	}

	return cityMatch(loc1, loc2)*0.6 + preferredLocationMatch(pref1, pref2, loc1, loc2)*0.4
}

// cityOf returns the lowercased part of a "City, State" location before the first comma.
func cityOf(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.ToLower(strings.TrimSpace(city))
}

func cityMatch(loc1, loc2 string) float64 {
	city1, city2 := cityOf(loc1), cityOf(loc2)
	if city1 == city2 {
		return 100
	}
	if isNearbyCity(city1) && isNearbyCity(city2) {
		return 75
	}
	return 30
}

func isNearbyCity(city string) bool {
	for _, nearby := range nearbyCities {
		if strings.Contains(city, nearby) {
			return true
		}
	}
	return false
}

func preferredLocationMatch(pref1, pref2, loc1, loc2 string) float64 {
	if pref1 == "" || pref2 == "" || loc1 == "" || loc2 == "" {
		return Neutral
	}

	pref1CoversLoc2 := strings.Contains(strings.ToLower(pref1), cityOf(loc2))
	pref2CoversLoc1 := strings.Contains(strings.ToLower(pref2), cityOf(loc1))

	switch {
	case pref1CoversLoc2 && pref2CoversLoc1:
		return 100
	case pref1CoversLoc2 || pref2CoversLoc1:
		return 75
	default:
		return 40
	}
}

// Budget scores the overlap of the two budget ranges relative to the wider one.
// Disjoint ranges score 10; a missing or non-finite budget is neutral.
func Budget(a, b *profile.Profile) float64 {
	b1, b2 := budgetOf(a), budgetOf(b)
	if b1 == nil || b2 == nil {
		return Neutral
	}

	overlapMin := math.Max(b1.Min, b2.Min)
	overlapMax := math.Min(b1.Max, b2.Max)
	if overlapMax < overlapMin {
		return 10
	}

	widest := math.Max(b1.Max-b1.Min, b2.Max-b2.Min)
	if widest <= 0 {
		// both ranges are single points and they coincide
		return 100
	}

	ratio := (overlapMax - overlapMin) / widest
	return math.Min(100, ratio*100+20)
}

// Services scores how many needs each side can cover for the other. Needs are
// counted per entry, so a duplicated need counts twice.
func Services(a, b *profile.Profile) float64 {
	s1, s2 := servicesOf(a), servicesOf(b)
	if s1 == nil || s2 == nil {
		return Neutral
	}

	totalNeeds := len(s1.ServicesNeeded) + len(s2.ServicesNeeded)
	if totalNeeds == 0 {
		return Neutral
	}

	matches := len(coveredNeeds(s2.ServicesNeeded, s1.ServicesOffered)) +
		len(coveredNeeds(s1.ServicesNeeded, s2.ServicesOffered))

	return math.Min(100, float64(matches)/float64(totalNeeds)*100+30)
}

// coveredNeeds returns the entries of needed that appear in offered, in order.
func coveredNeeds(needed, offered []string) []string {
	var covered []string
	for _, need := range needed {
		if slices.Contains(offered, need) {
			covered = append(covered, need)
		}
	}
	return covered
}

func preferencesOf(p *profile.Profile) *profile.PreferencesInfo {
	if p == nil {
		return nil
	}
	return p.PreferencesInfo
}

func housingOf(p *profile.Profile) *profile.HousingInfo {
	if p == nil {
		return nil
	}
	return p.HousingInfo
}

func servicesOf(p *profile.Profile) *profile.ServicesInfo {
	if p == nil {
		return nil
	}
	return p.ServicesInfo
}

func locationOf(p *profile.Profile) string {
	if p == nil || p.BasicInfo == nil {
		return ""
	}
	return strings.TrimSpace(p.BasicInfo.Location)
}

func budgetOf(p *profile.Profile) *profile.Budget {
	h := housingOf(p)
	if h == nil || h.Budget == nil {
		return nil
	}
	for _, v := range []float64{h.Budget.Min, h.Budget.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	return h.Budget
}
