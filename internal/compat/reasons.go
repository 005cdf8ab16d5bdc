package compat

import (
	"fmt"
	"strings"

	"github.com/spigell/roomie-matcher/internal/profile"
)

// Reasons explains the sub-scores of a and b in plain words. A reason whose
// underlying fields are absent is omitted.
func Reasons(a, b *profile.Profile, scores Scores) []string {
	reasons := make([]string, 0, 6)

	if scores.Schedule >= scheduleReasonMin {
		s1, s2 := workScheduleOf(a), workScheduleOf(b)
		if s1 != "" && s2 != "" {
			reasons = append(reasons, fmt.Sprintf("Compatible schedules (%s & %s)", s1, s2))
		}
	}

	p1, p2 := preferencesOf(a), preferencesOf(b)

	if scores.Lifestyle >= lifestyleReasonMin && p1 != nil && p2 != nil {
		if p1.CleanlinessLevel != "" && p1.CleanlinessLevel == p2.CleanlinessLevel {
			reasons = append(reasons, fmt.Sprintf("Shared cleanliness standards (%s)", p1.CleanlinessLevel))
		}
		if p1.NoiseLevel != "" && p1.NoiseLevel == p2.NoiseLevel {
			reasons = append(reasons, fmt.Sprintf("Similar noise preferences (%s)", p1.NoiseLevel))
		}
	}

	if scores.Preferences >= preferencesReasonMin && p1 != nil && p2 != nil {
		if isTrue(p1.LGBTQInclusive) && isTrue(p2.LGBTQInclusive) {
			reasons = append(reasons, "Both value LGBTQ+ inclusive environment")
		}
	}

	if scores.Location >= locationReasonMin {
		reasons = append(reasons, "Great location match")
	}

	if scores.Budget >= budgetReasonMin {
		reasons = append(reasons, "Compatible budget ranges")
	}

	if scores.Services >= servicesReasonMin {
		s1, s2 := servicesOf(a), servicesOf(b)
		if s1 != nil && s2 != nil {
			if helps := coveredNeeds(s2.ServicesNeeded, s1.ServicesOffered); len(helps) > 0 {
				reasons = append(reasons, "Can help with: "+strings.Join(helps, ", "))
			}
		}
	}

	return reasons
}

func workScheduleOf(p *profile.Profile) string {
	if p == nil || p.ScheduleInfo == nil {
		return ""
	}
	return p.ScheduleInfo.WorkSchedule
}

func isTrue(v *bool) bool {
	return v != nil && *v
}
