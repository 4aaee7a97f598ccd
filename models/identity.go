package models

import (
	"strings"

	"cue-club-system/utils"
)

// Identity is who a roster entry is: a registered membership or a named guest.
// The two variants are the only implementations.
type Identity interface {
	// Key is unique per person within a match.
	Key() string
	DisplayName() string
	isIdentity()
}

type Registered struct {
	MembershipID string
	Name         string
}

func (r Registered) Key() string         { return "mem:" + r.MembershipID }
func (r Registered) DisplayName() string { return r.Name }
func (Registered) isIdentity()           {}

type Guest struct {
	Name string
}

func (g Guest) Key() string         { return "guest:" + utils.NameKey(g.Name) }
func (g Guest) DisplayName() string { return g.Name }
func (Guest) isIdentity()           {}

// NewGuest trims the display name. ok is false when the name folds to nothing.
func NewGuest(name string) (Guest, bool) {
	name = strings.Join(strings.Fields(name), " ")
	if utils.NameKey(name) == "" {
		return Guest{}, false
	}
	return Guest{Name: name}, true
}
