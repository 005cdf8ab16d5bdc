package compat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/roomie-matcher/internal/profile"
)

const tolerance = 1e-9

func userA() *profile.Profile {
	return &profile.Profile{
		ID:        "a",
		BasicInfo: &profile.BasicInfo{FirstName: "Alex", Location: "San Francisco, CA"},
		ScheduleInfo: &profile.ScheduleInfo{
			WorkSchedule: profile.ScheduleDayShift,
			WakeUpTime:   "07:00",
			BedTime:      "23:00",
			WorkFromHome: profile.Bool(true),
		},
		PreferencesInfo: &profile.PreferencesInfo{
			LGBTQInclusive:   profile.Bool(true),
			GenderPreference: profile.GenderNoPreference,
			PetFriendly:      profile.Bool(true),
			SmokingTolerance: profile.SmokingNone,
			NoiseLevel:       "quiet",
			CleanlinessLevel: "very-clean",
		},
		ServicesInfo: &profile.ServicesInfo{
			ServicesOffered: []string{"Cooking/Meal Prep", "Tech Support"},
			ServicesNeeded:  []string{"Pet Sitting"},
		},
		HousingInfo: &profile.HousingInfo{
			Budget:            &profile.Budget{Min: 1200, Max: 1800},
			PreferredLocation: "Oakland, Berkeley",
			HousingType:       "apartment",
		},
		Completed: true,
	}
}

func userB() *profile.Profile {
	return &profile.Profile{
		ID:        "b",
		BasicInfo: &profile.BasicInfo{FirstName: "Sam", Location: "Oakland, CA"},
		ScheduleInfo: &profile.ScheduleInfo{
			WorkSchedule: profile.ScheduleDayShift,
			WakeUpTime:   "07:30",
			BedTime:      "23:00",
			WorkFromHome: profile.Bool(true),
		},
		PreferencesInfo: &profile.PreferencesInfo{
			LGBTQInclusive:   profile.Bool(true),
			GenderPreference: profile.GenderNoPreference,
			PetFriendly:      profile.Bool(true),
			SmokingTolerance: profile.SmokingNone,
			NoiseLevel:       "quiet",
			CleanlinessLevel: "very-clean",
		},
		ServicesInfo: &profile.ServicesInfo{
			ServicesOffered: []string{"Pet Sitting"},
			ServicesNeeded:  []string{"Cooking/Meal Prep"},
		},
		HousingInfo: &profile.HousingInfo{
			Budget:            &profile.Budget{Min: 1000, Max: 1500},
			PreferredLocation: "Mission District, San Francisco",
			HousingType:       "apartment",
		},
		Completed: true,
	}
}

func TestScoreEndToEnd(t *testing.T) {
	result := Score(userA(), userB())

	assert.InDelta(t, 97.5, result.Scores.Schedule, tolerance)
	assert.InDelta(t, 100, result.Scores.Lifestyle, tolerance)
	assert.InDelta(t, 100, result.Scores.Preferences, tolerance)
	assert.InDelta(t, 85, result.Scores.Location, tolerance)
	assert.InDelta(t, 70, result.Scores.Budget, tolerance)
	assert.InDelta(t, 100, result.Scores.Services, tolerance)

	expected := 97.5*0.20 + 100*0.25 + 100*0.20 + 85*0.15 + 70*0.10 + 100*0.10
	assert.InDelta(t, expected, result.Overall, tolerance)

	assert.Equal(t, []string{
		"Compatible schedules (day-shift & day-shift)",
		"Shared cleanliness standards (very-clean)",
		"Similar noise preferences (quiet)",
		"Both value LGBTQ+ inclusive environment",
		"Great location match",
		"Compatible budget ranges",
		"Can help with: Cooking/Meal Prep",
	}, result.Reasons)
}

func TestScoreIdenticalProfiles(t *testing.T) {
	a := userA()
	a.HousingInfo.PreferredLocation = "San Francisco"
	a.ServicesInfo = &profile.ServicesInfo{
		ServicesOffered: []string{"Tech Support"},
		ServicesNeeded:  []string{"Tech Support"},
	}

	result := Score(a, a)

	assert.InDelta(t, 100, result.Scores.Schedule, tolerance)
	assert.InDelta(t, 100, result.Scores.Lifestyle, tolerance)
	assert.InDelta(t, 100, result.Scores.Preferences, tolerance)
	assert.InDelta(t, 100, result.Scores.Location, tolerance)
	assert.InDelta(t, 100, result.Scores.Budget, tolerance)
	assert.InDelta(t, 100, result.Scores.Services, tolerance)
	assert.InDelta(t, 100, result.Overall, tolerance)
}

func TestWeightsSumToOne(t *testing.T) {
	sum := Weights.Schedule + Weights.Lifestyle + Weights.Preferences +
		Weights.Location + Weights.Budget + Weights.Services
	assert.InDelta(t, 1.0, sum, tolerance)
}

func TestWorkScheduleScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		s1, s2 string
		expect float64
	}{
		{"identical", "student", "student", 100},
		{"compatible", "day-shift", "remote", 75},
		{"compatible reversed", "remote", "student", 75},
		{"incompatible", "day-shift", "night-shift", 25},
		{"missing", "", "remote", 50},
		{"unknown value", "astronaut", "remote", 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, workScheduleScore(tt.s1, tt.s2), tolerance)
		})
	}
}

func TestSleepScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   profile.ScheduleInfo
		expect float64
	}{
		{
			name:   "two hours apart on wake time",
			a:      profile.ScheduleInfo{WakeUpTime: "07:00", BedTime: "23:00"},
			b:      profile.ScheduleInfo{WakeUpTime: "09:00", BedTime: "23:00"},
			expect: 75,
		},
		{
			name:   "far apart floors at zero",
			a:      profile.ScheduleInfo{WakeUpTime: "06:00", BedTime: "22:00"},
			b:      profile.ScheduleInfo{WakeUpTime: "14:00", BedTime: "06:00"},
			expect: 0,
		},
		{
			name:   "missing wake time",
			a:      profile.ScheduleInfo{BedTime: "23:00"},
			b:      profile.ScheduleInfo{WakeUpTime: "07:00", BedTime: "23:00"},
			expect: 50,
		},
		{
			name:   "unparsable bed time",
			a:      profile.ScheduleInfo{WakeUpTime: "07:00", BedTime: "late"},
			b:      profile.ScheduleInfo{WakeUpTime: "07:00", BedTime: "23:00"},
			expect: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, sleepScore(tt.a, tt.b), tolerance)
		})
	}
}

func TestScheduleMissingSection(t *testing.T) {
	a := userA()
	a.ScheduleInfo = nil

	assert.InDelta(t, 50, Schedule(a, userB()), tolerance)
}

func TestLifestyle(t *testing.T) {
	t.Run("missing preferences", func(t *testing.T) {
		b := userB()
		b.PreferencesInfo = nil
		assert.InDelta(t, 50, Lifestyle(userA(), b), tolerance)
	})

	t.Run("mismatches", func(t *testing.T) {
		a, b := userA(), userB()
		b.PreferencesInfo.NoiseLevel = "lively"      // diff 2 -> 50
		b.PreferencesInfo.CleanlinessLevel = "relaxed" // diff 3 -> 30
		b.PreferencesInfo.PetFriendly = profile.Bool(false)
		b.PreferencesInfo.SmokingTolerance = profile.SmokingOutdoorOnly

		expected := 50*0.35 + 30*0.35 + 40*0.20 + 80*0.10
		assert.InDelta(t, expected, Lifestyle(a, b), tolerance)
	})

	t.Run("off scale values are neutral", func(t *testing.T) {
		a, b := userA(), userB()
		b.PreferencesInfo.NoiseLevel = "thunderous"
		b.PreferencesInfo.SmokingTolerance = profile.SmokingIndoorOK

		expected := 50*0.35 + 100*0.35 + 100*0.20 + 20*0.10
		assert.InDelta(t, expected, Lifestyle(a, b), tolerance)
	})
}

func TestPreferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lgbtq   *bool
		gender  string
		housing string
		expect  float64
	}{
		{"lgbtq mismatch", profile.Bool(false), profile.GenderNoPreference, "apartment", 10*0.4 + 100*0.4 + 100*0.2},
		{"lgbtq undefined", nil, profile.GenderNoPreference, "apartment", 50*0.4 + 100*0.4 + 100*0.2},
		{"one has gender preference", profile.Bool(true), profile.GenderSameGender, "apartment", 100*0.4 + 80*0.4 + 100*0.2},
		{"housing differs", profile.Bool(true), profile.GenderNoPreference, "house", 100*0.4 + 100*0.4 + 70*0.2},
		{"housing missing", profile.Bool(true), profile.GenderNoPreference, "", 100*0.4 + 100*0.4 + 50*0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := userA(), userB()
			b.PreferencesInfo.LGBTQInclusive = tt.lgbtq
			b.PreferencesInfo.GenderPreference = tt.gender
			b.HousingInfo.HousingType = tt.housing
			assert.InDelta(t, tt.expect, Preferences(a, b), tolerance)
		})
	}
}

func TestGenderPreferenceScore(t *testing.T) {
	assert.InDelta(t, 90, genderPreferenceScore(profile.GenderSameGender, profile.GenderSameGender), tolerance)
	assert.InDelta(t, 40, genderPreferenceScore(profile.GenderSameGender, profile.GenderDifferentGender), tolerance)
	assert.InDelta(t, 50, genderPreferenceScore("", profile.GenderDifferentGender), tolerance)
}

func TestLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		loc1, loc2   string
		pref1, pref2 string
		expect       float64
	}{
		{"same city no prefs", "Berkeley, CA", "berkeley, ca", "", "", 100*0.6 + 50*0.4},
		{"nearby cluster one pref", "Palo Alto, CA", "Mountain View, CA", "Mountain View", "Cupertino", 75*0.6 + 75*0.4},
		{"far apart", "Austin, TX", "Seattle, WA", "Downtown", "Capitol Hill", 30*0.6 + 40*0.4},
		{"missing location", "", "Seattle, WA", "Seattle", "Austin", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := &profile.Profile{
				BasicInfo:   &profile.BasicInfo{Location: tt.loc1},
				HousingInfo: &profile.HousingInfo{PreferredLocation: tt.pref1},
			}
			b := &profile.Profile{
				BasicInfo:   &profile.BasicInfo{Location: tt.loc2},
				HousingInfo: &profile.HousingInfo{PreferredLocation: tt.pref2},
			}
			assert.InDelta(t, tt.expect, Location(a, b), tolerance)
		})
	}
}

func budgetProfile(min, max float64) *profile.Profile {
	return &profile.Profile{HousingInfo: &profile.HousingInfo{Budget: &profile.Budget{Min: min, Max: max}}}
}

func TestBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   *profile.Profile
		expect float64
	}{
		{"partial overlap", budgetProfile(1200, 1800), budgetProfile(1000, 1500), 70},
		{"no overlap", budgetProfile(500, 800), budgetProfile(1200, 1500), 10},
		{"touching ranges", budgetProfile(500, 1000), budgetProfile(1000, 1500), 20},
		{"same point", budgetProfile(1000, 1000), budgetProfile(1000, 1000), 100},
		{"missing", budgetProfile(1000, 1500), &profile.Profile{}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.expect, Budget(tt.a, tt.b), tolerance)
			assert.InDelta(t, Budget(tt.a, tt.b), Budget(tt.b, tt.a), tolerance, "budget must be symmetric")
		})
	}
}

func TestServices(t *testing.T) {
	t.Run("no needs on either side", func(t *testing.T) {
		a := &profile.Profile{ServicesInfo: &profile.ServicesInfo{ServicesOffered: []string{"Cooking"}}}
		b := &profile.Profile{ServicesInfo: &profile.ServicesInfo{ServicesOffered: []string{"Pet Sitting"}}}
		assert.InDelta(t, 50, Services(a, b), tolerance)
	})

	t.Run("duplicated needs count per entry", func(t *testing.T) {
		a := &profile.Profile{ServicesInfo: &profile.ServicesInfo{
			ServicesOffered: []string{"Cooking"},
			ServicesNeeded:  []string{"Tutoring", "Tutoring"},
		}}
		b := &profile.Profile{ServicesInfo: &profile.ServicesInfo{
			ServicesNeeded: []string{"Cooking", "Cooking"},
		}}
		// 2 of 4 needs covered
		assert.InDelta(t, 80, Services(a, b), tolerance)
	})

	t.Run("missing section", func(t *testing.T) {
		assert.InDelta(t, 50, Services(userA(), &profile.Profile{}), tolerance)
	})
}

func TestReasonsToleratesMissingFields(t *testing.T) {
	high := Scores{Schedule: 100, Lifestyle: 100, Preferences: 100, Location: 100, Budget: 100, Services: 100}

	reasons := Reasons(&profile.Profile{}, &profile.Profile{}, high)
	assert.Equal(t, []string{"Great location match", "Compatible budget ranges"}, reasons)

	reasons = Reasons(nil, nil, Scores{})
	assert.Empty(t, reasons)
}

func randomProfile(r *rand.Rand) *profile.Profile {
	pick := func(values ...string) string { return values[r.Intn(len(values))] }
	optBool := func() *bool {
		switch r.Intn(3) {
		case 0:
			return nil
		case 1:
			return profile.Bool(true)
		default:
			return profile.Bool(false)
		}
	}
	tags := []string{"Cooking", "Pet Sitting", "Tech Support", "Cleaning", ""}
	pickTags := func() []string {
		n := r.Intn(4)
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, tags[r.Intn(len(tags))])
		}
		return out
	}

	p := &profile.Profile{ID: pick("x", "y", "z")}
	if r.Intn(5) > 0 {
		p.BasicInfo = &profile.BasicInfo{Location: pick("", "San Francisco, CA", "Oakland", "Austin, TX", ", CA")}
	}
	if r.Intn(5) > 0 {
		p.ScheduleInfo = &profile.ScheduleInfo{
			WorkSchedule: pick("", "day-shift", "night-shift", "freelancer", "student", "remote", "irregular", "bogus"),
			WakeUpTime:   pick("", "06:00", "07:30", "14:00", "25:99", "noon"),
			BedTime:      pick("", "22:00", "23:45", "02:00", "x"),
			WorkFromHome: optBool(),
		}
	}
	if r.Intn(5) > 0 {
		p.PreferencesInfo = &profile.PreferencesInfo{
			LGBTQInclusive:   optBool(),
			GenderPreference: pick("", "no-preference", "same-gender", "different-gender"),
			PetFriendly:      optBool(),
			SmokingTolerance: pick("", "no-smoking", "outdoor-only", "indoor-ok"),
			NoiseLevel:       pick("", "very-quiet", "quiet", "moderate", "lively", "loud"),
			CleanlinessLevel: pick("", "very-clean", "clean", "moderate", "relaxed"),
		}
	}
	if r.Intn(5) > 0 {
		p.ServicesInfo = &profile.ServicesInfo{ServicesOffered: pickTags(), ServicesNeeded: pickTags()}
	}
	if r.Intn(5) > 0 {
		p.HousingInfo = &profile.HousingInfo{
			PreferredLocation: pick("", "Oakland", "san francisco, berkeley", "Austin"),
			HousingType:       pick("", "apartment", "house", "studio"),
		}
		if r.Intn(4) > 0 {
			lo := float64(r.Intn(3000))
			p.HousingInfo.Budget = &profile.Budget{Min: lo, Max: lo + float64(r.Intn(1500))}
		}
	}
	return p
}

func TestScoresStayInRange(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		a, b := randomProfile(r), randomProfile(r)
		result := Score(a, b)

		for name, v := range map[string]float64{
			"schedule":    result.Scores.Schedule,
			"lifestyle":   result.Scores.Lifestyle,
			"preferences": result.Scores.Preferences,
			"location":    result.Scores.Location,
			"budget":      result.Scores.Budget,
			"services":    result.Scores.Services,
			"overall":     result.Overall,
		} {
			require.GreaterOrEqual(t, v, 0.0, "%s below range for %+v / %+v", name, a, b)
			require.LessOrEqual(t, v, 100.0+tolerance, "%s above range", name)
		}
	}
}
