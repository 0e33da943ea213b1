package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownProfile is returned by LookupProfile for names it does not know.
var ErrUnknownProfile = errors.New("unknown dispatch profile")

// Profile controls the pacing of a run.
type Profile struct {
	Name             string        `json:"name"`
	BatchSize        int           `json:"batchSize"`
	InterBatchDelay  time.Duration `json:"interBatchDelay"`
	InterItemStagger time.Duration `json:"interItemStagger"`
	PerItemTimeout   time.Duration `json:"perItemTimeout"`
}

var (
	// DefaultProfile suits a typical shared SMTP relay.
	DefaultProfile = Profile{
		Name:             "default",
		BatchSize:        5,
		InterBatchDelay:  2 * time.Second,
		InterItemStagger: 500 * time.Millisecond,
		PerItemTimeout:   30 * time.Second,
	}

	// AggressiveProfile is for strictly rate-limited providers; the name
	// refers to the provider's throttling, so it sends the slowest.
	AggressiveProfile = Profile{
		Name:             "aggressive",
		BatchSize:        3,
		InterBatchDelay:  3 * time.Second,
		InterItemStagger: time.Second,
		PerItemTimeout:   45 * time.Second,
	}

	// DedicatedProfile is for a dedicated relay with generous limits.
	DedicatedProfile = Profile{
		Name:             "dedicated",
		BatchSize:        10,
		InterBatchDelay:  time.Second,
		InterItemStagger: 200 * time.Millisecond,
		PerItemTimeout:   30 * time.Second,
	}
)

// Profiles returns the named profiles in display order.
func Profiles() []Profile {
	return []Profile{DefaultProfile, AggressiveProfile, DedicatedProfile}
}

// LookupProfile finds a named profile, ignoring case. An empty name selects
// DefaultProfile.
func LookupProfile(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultProfile, nil
	}
	for _, p := range Profiles() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// Overrides replaces profile fields. A nil field leaves the profile value
// unchanged; a non-nil one applies even when it is zero.
type Overrides struct {
	BatchSize        *int
	InterBatchDelay  *time.Duration
	InterItemStagger *time.Duration
	PerItemTimeout   *time.Duration
}

// WithOverrides returns a copy of p with every set override applied. The
// result is not validated; New rejects an invalid profile.
func (p Profile) WithOverrides(o Overrides) Profile {
	if o.BatchSize != nil {
		p.BatchSize = *o.BatchSize
	}
	if o.InterBatchDelay != nil {
		p.InterBatchDelay = *o.InterBatchDelay
	}
	if o.InterItemStagger != nil {
		p.InterItemStagger = *o.InterItemStagger
	}
	if o.PerItemTimeout != nil {
		p.PerItemTimeout = *o.PerItemTimeout
	}
	return p
}

// Validate checks the invariants a run depends on.
func (p Profile) Validate() error {
	var errs []string
	if p.BatchSize < 1 {
		errs = append(errs, "batch size must be at least 1")
	}
	if p.InterBatchDelay < 0 {
		errs = append(errs, "inter-batch delay must be non-negative")
	}
	if p.InterItemStagger < 0 {
		errs = append(errs, "inter-item stagger must be non-negative")
	}
	if p.PerItemTimeout <= 0 {
		errs = append(errs, "per-item timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile %q: %s", p.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Batches returns how many batches a run over n records takes.
func (p Profile) Batches(n int) int {
	if n <= 0 || p.BatchSize <= 0 {
		return 0
	}
	return (n + p.BatchSize - 1) / p.BatchSize
}
