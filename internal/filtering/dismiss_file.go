package filtering

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// DismissedProfiles is the on-disk record of candidates users chose to hide.
type DismissedProfiles struct {
	Items []*DismissedProfile `json:"items"`
}

type DismissedProfile struct {
	UserID      string    `json:"user_id"`
	ProfileID   string    `json:"profile_id"`
	DismissedAt time.Time `json:"dismissed_at"`
}

// ReadDismissFile loads the dismiss file. A missing or empty file yields an empty list.
func ReadDismissFile(path string) (*DismissedProfiles, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &DismissedProfiles{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &DismissedProfiles{}, nil
	}

	var dismissed DismissedProfiles
	if err := json.NewDecoder(file).Decode(&dismissed); err != nil {
		return nil, err
	}
	return &dismissed, nil
}

// Dismiss records that userID does not want to see profileIDs again.
// Pairs already present are skipped.
func (d *DismissedProfiles) Dismiss(userID string, profileIDs ...string) int {
	known := make(map[string]struct{})
	for _, id := range d.IDsFor(userID) {
		known[id] = struct{}{}
	}

	added := 0
	now := time.Now().UTC()
	for _, id := range profileIDs {
		if _, ok := known[id]; ok || id == "" {
			continue
		}
		known[id] = struct{}{}
		d.Items = append(d.Items, &DismissedProfile{
			UserID:      userID,
			ProfileID:   id,
			DismissedAt: now,
		})
		added++
	}
	return added
}

// IDsFor returns the profile ids dismissed by userID.
func (d *DismissedProfiles) IDsFor(userID string) []string {
	ids := make([]string, 0)
	for _, item := range d.Items {
		if item != nil && item.UserID == userID {
			ids = append(ids, item.ProfileID)
		}
	}
	return ids
}

func (d *DismissedProfiles) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
