package profile

import "strings"

// Profile holds the onboarding attributes of one user. Every section is
// optional: a nil section means the user has not filled that step yet.
type Profile struct {
	ID                 string           `json:"id"`
	Bio                string           `json:"bio,omitempty"`
	VerificationStatus string           `json:"verification_status,omitempty"`
	JoinedDate         string           `json:"joined_date,omitempty"`
	BasicInfo          *BasicInfo       `json:"basic_info,omitempty"`
	ScheduleInfo       *ScheduleInfo    `json:"schedule_info,omitempty"`
	PreferencesInfo    *PreferencesInfo `json:"preferences_info,omitempty"`
	ServicesInfo       *ServicesInfo    `json:"services_info,omitempty"`
	HousingInfo        *HousingInfo     `json:"housing_info,omitempty"`
	Completed          bool             `json:"completed"`
	CompletedAt        string           `json:"completed_at,omitempty"`
}

type BasicInfo struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Age         string `json:"age,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ScheduleInfo describes the daily routine. Times are "HH:MM" in 24-hour format.
type ScheduleInfo struct {
	WorkSchedule string `json:"work_schedule,omitempty"`
	WakeUpTime   string `json:"wake_up_time,omitempty"`
	BedTime      string `json:"bed_time,omitempty"`
	WorkFromHome *bool  `json:"work_from_home,omitempty"`
}

type PreferencesInfo struct {
	LGBTQInclusive   *bool  `json:"lgbtq_inclusive,omitempty"`
	GenderPreference string `json:"gender_preference,omitempty"`
	PetFriendly      *bool  `json:"pet_friendly,omitempty"`
	SmokingTolerance string `json:"smoking_tolerance,omitempty"`
	NoiseLevel       string `json:"noise_level,omitempty"`
	CleanlinessLevel string `json:"cleanliness_level,omitempty"`
}

// ServicesInfo lists free-text service tags. Tags are compared by exact match.
type ServicesInfo struct {
	ServicesOffered []string `json:"services_offered,omitempty"`
	ServicesNeeded  []string `json:"services_needed,omitempty"`
}

type HousingInfo struct {
	MoveInDate        string  `json:"move_in_date,omitempty"`
	Budget            *Budget `json:"budget,omitempty"`
	PreferredLocation string  `json:"preferred_location,omitempty"`
	HousingType       string  `json:"housing_type,omitempty"`
}

// Budget is a monthly rent range. Min <= Max is expected but not enforced.
type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Work schedule types.
const (
	ScheduleDayShift   = "day-shift"
	ScheduleNightShift = "night-shift"
	ScheduleFreelancer = "freelancer"
	ScheduleStudent    = "student"
	ScheduleRemote     = "remote"
	ScheduleIrregular  = "irregular"
)

// Gender preferences.
const (
	GenderNoPreference    = "no-preference"
	GenderSameGender      = "same-gender"
	GenderDifferentGender = "different-gender"
)

// Smoking tolerances.
const (
	SmokingNone        = "no-smoking"
	SmokingOutdoorOnly = "outdoor-only"
	SmokingIndoorOK    = "indoor-ok"
)

// Bool returns a pointer to v. It is handy for building profiles in code.
func Bool(v bool) *bool {
	return &v
}

// DisplayName returns the full name of the user or its id when no name is known.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.BasicInfo != nil {
		name := strings.TrimSpace(p.BasicInfo.FirstName + " " + p.BasicInfo.LastName)
		if name != "" {
			return name
		}
	}
	return p.ID
}

// Eligible reports whether the profile may be offered as a match candidate.
func (p *Profile) Eligible() bool {
	return p != nil && p.Completed
}

// Merge returns a copy of p where every non-nil section of update replaces the
// corresponding section. Scalar fields are copied when non-empty; Completed is
// always taken from update.
func (p *Profile) Merge(update *Profile) *Profile {
	if p == nil {
		return update
	}
	merged := *p
	if update == nil {
		return &merged
	}

	if update.Bio != "" {
		merged.Bio = update.Bio
	}
	if update.VerificationStatus != "" {
		merged.VerificationStatus = update.VerificationStatus
	}
	if update.JoinedDate != "" {
		merged.JoinedDate = update.JoinedDate
	}
	if update.CompletedAt != "" {
		merged.CompletedAt = update.CompletedAt
	}
	if update.BasicInfo != nil {
		merged.BasicInfo = update.BasicInfo
	}
	if update.ScheduleInfo != nil {
		merged.ScheduleInfo = update.ScheduleInfo
	}
	if update.PreferencesInfo != nil {
		merged.PreferencesInfo = update.PreferencesInfo
	}
	if update.ServicesInfo != nil {
		merged.ServicesInfo = update.ServicesInfo
	}
	if update.HousingInfo != nil {
		merged.HousingInfo = update.HousingInfo
	}
	merged.Completed = update.Completed

	return &merged
}

// Pool is an ordered set of candidate profiles.
type Pool struct {
	Items []*Profile
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// IDs returns the identities of the pool members in order.
func (p *Pool) IDs() []string {
	ids := make([]string, 0, p.Len())
	if p == nil {
		return ids
	}
	for _, item := range p.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// FindByID returns the member with the given id or nil.
func (p *Pool) FindByID(id string) *Profile {
	if p == nil {
		return nil
	}
	for _, item := range p.Items {
		if item != nil && item.ID == id {
			return item
		}
	}
	return nil
}

// RemoveFunc drops every member for which drop returns true and returns the
// ids of the removed members. Order of the remaining members is preserved.
func (p *Pool) RemoveFunc(drop func(*Profile) bool) []string {
	var removed []string
	kept := p.Items[:0]
	for _, item := range p.Items {
		if drop(item) {
			if item != nil {
				removed = append(removed, item.ID)
			} else {
				removed = append(removed, "")
			}
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return removed
}
