// Package directory holds the table of characters reachable from the rotary dial.
//
// A Directory maps the digits 1 through 9 to a Role. Digit 0 is reserved for the
// spoken directory listing and never maps to a role. Directories are built once at
// startup and are read-only afterwards, so they are safe to share between goroutines.
package directory

import (
	"errors"
	"fmt"
	"strings"
)

// DirectoryDigit is the digit that asks the operator for the listing.
const DirectoryDigit = 0

// Errors returned while building a directory.
var (
	ErrReservedDigit  = errors.New("directory: digit 0 is reserved for the directory listing")
	ErrDigitRange     = errors.New("directory: digit must be between 0 and 9")
	ErrDuplicateDigit = errors.New("directory: digit assigned more than once")
	ErrInvalidRole    = errors.New("directory: invalid role")
)

// Role is a character bound to a digit.
type Role struct {
	Name         string `yaml:"name" json:"name"`
	VoiceID      string `yaml:"voice_id" json:"voice_id"`
	Greeting     string `yaml:"greeting" json:"greeting"`
	SystemPrompt string `yaml:"system_prompt" json:"-"`

	// DialTone is the path of the audio played before the character answers.
	// Empty means no dial tone.
	DialTone string `yaml:"dial_tone" json:"dial_tone,omitempty"`
}

// Validate checks the fields every role needs.
func (r Role) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	if strings.TrimSpace(r.VoiceID) == "" {
		return fmt.Errorf("%w: %s: voice_id is required", ErrInvalidRole, r.Name)
	}
	return nil
}

// Entry pairs a digit with its role.
type Entry struct {
	Digit int   `json:"digit"`
	Role  *Role `json:"role"`
}

// Directory is the digit to role table.
type Directory struct {
	roles [10]*Role
}

// New builds a directory from a digit to role map.
func New(roles map[int]Role) (*Directory, error) {
	d := &Directory{}
	for digit, role := range roles {
		if err := d.assign(digit, role); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Directory) assign(digit int, role Role) error {
	switch {
	case digit == DirectoryDigit:
		return ErrReservedDigit
	case digit < 0 || digit > 9:
		return fmt.Errorf("%w: got %d", ErrDigitRange, digit)
	case d.roles[digit] != nil:
		return fmt.Errorf("%w: %d", ErrDuplicateDigit, digit)
	}
	if err := role.Validate(); err != nil {
		return fmt.Errorf("digit %d: %w", digit, err)
	}
	r := role
	d.roles[digit] = &r
	return nil
}

// Lookup returns the role for digit. Digit 0 and anything outside 0..9 are absent.
func (d *Directory) Lookup(digit int) (*Role, bool) {
	if d == nil || digit <= DirectoryDigit || digit > 9 {
		return nil, false
	}
	r := d.roles[digit]
	if r == nil {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// Assigned returns the digits that have a role, ascending.
func (d *Directory) Assigned() []int {
	var digits []int
	if d == nil {
		return digits
	}
	for digit, r := range d.roles {
		if r != nil {
			digits = append(digits, digit)
		}
	}
	return digits
}

// Entries returns every assigned digit with its role, ascending.
func (d *Directory) Entries() []Entry {
	digits := d.Assigned()
	entries := make([]Entry, 0, len(digits))
	for _, digit := range digits {
		r, _ := d.Lookup(digit)
		entries = append(entries, Entry{Digit: digit, Role: r})
	}
	return entries
}

// Len returns the number of assigned digits.
func (d *Directory) Len() int {
	return len(d.Assigned())
}

// Listing renders the text the operator speaks when digit 0 is dialed.
func (d *Directory) Listing() string {
	var b strings.Builder
	for _, e := range d.Entries() {
		fmt.Fprintf(&b, "For %s, dial %d. ", e.Role.Name, e.Digit)
	}
	return strings.TrimSpace(b.String())
}
