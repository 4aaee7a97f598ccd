package models

import (
	"crypto/subtle"
	"errors"
	"time"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
)

type GameType string

const (
	GameTypePool  GameType = "pool"
	GameTypeCarom GameType = "carom"
)

func (g GameType) Valid() bool {
	return g == GameTypePool || g == GameTypeCarom
}

type MemberRole string

const (
	RoleHost        MemberRole = "host"
	RoleParticipant MemberRole = "participant"
)

const (
	TeamCount         = 2
	MaxMembersPerTeam = 4
)

// MatchTeamMember is one roster entry. Exactly one of MembershipID and
// GuestName is set; build it with NewTeamMember.
type MatchTeamMember struct {
	MembershipID   string     `json:"membershipId,omitempty"`
	MembershipName string     `json:"membershipName,omitempty"`
	GuestName      string     `json:"guestName,omitempty"`
	Role           MemberRole `json:"role"`
	SessionToken   string     `json:"sessionToken,omitempty"`
	JoinedAt       time.Time  `json:"joinedAt"`
}

func NewTeamMember(id Identity, role MemberRole, token string, joinedAt time.Time) MatchTeamMember {
	m := MatchTeamMember{Role: role, SessionToken: token, JoinedAt: joinedAt}
	switch v := id.(type) {
	case Registered:
		m.MembershipID = v.MembershipID
		m.MembershipName = v.Name
	case Guest:
		m.GuestName = v.Name
	}
	return m
}

func (m MatchTeamMember) Identity() Identity {
	if m.MembershipID != "" {
		return Registered{MembershipID: m.MembershipID, Name: m.MembershipName}
	}
	return Guest{Name: m.GuestName}
}

func (m MatchTeamMember) Key() string { return m.Identity().Key() }

func (m MatchTeamMember) IsHost() bool { return m.Role == RoleHost }

var errMemberIdentity = errors.New("member must have exactly one of membershipId and guestName")

func (m MatchTeamMember) Validate() error {
	if (m.MembershipID == "") == (m.GuestName == "") {
		return errMemberIdentity
	}
	return nil
}

type MatchTeam struct {
	TeamName string            `json:"teamName"`
	Score    int               `json:"score"`
	IsWinner bool              `json:"isWinner"`
	Members  []MatchTeamMember `json:"members"`
}

// Match is the aggregate root of one game session on a table. Teams are
// stored as a JSON document; they have no identity outside the match.
type Match struct {
	MatchID               string      `gorm:"primaryKey;size:36" json:"matchId"`
	MatchCode             string      `gorm:"uniqueIndex;size:8;not null" json:"matchCode"`
	TableID               string      `gorm:"index;size:36;not null" json:"tableId"`
	ClubID                string      `gorm:"index;size:36;not null" json:"clubId"`
	BrandID               string      `gorm:"index;size:36;not null" json:"brandId"`
	ManagerID             *string     `gorm:"size:36" json:"managerId,omitempty"`
	CreatedByMembershipID *string     `gorm:"size:36" json:"createdByMembershipId,omitempty"`
	CreatorGuestToken     *string     `gorm:"size:64" json:"creatorGuestToken,omitempty"`
	GameType              GameType    `gorm:"type:varchar(16);not null" json:"gameType"`
	IsAiAssisted          bool        `json:"isAiAssisted"`
	Status                MatchStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	Teams                 []MatchTeam `gorm:"serializer:json;type:jsonb" json:"teams"`
	StartTime             *time.Time  `json:"startTime,omitempty"`
	EndTime               *time.Time  `json:"endTime,omitempty"`
	Version               int64       `gorm:"not null;default:0" json:"version"`
	ArchivedAt            *time.Time  `gorm:"index" json:"-"`
	CreatedAt             time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt             time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

// MemberRef locates a roster entry.
type MemberRef struct {
	Team   int
	Index  int
	Member *MatchTeamMember
}

// FindMember looks up a roster entry by identity key.
func (m *Match) FindMember(key string) (MemberRef, bool) {
	for ti := range m.Teams {
		for mi := range m.Teams[ti].Members {
			if m.Teams[ti].Members[mi].Key() == key {
				return MemberRef{Team: ti, Index: mi, Member: &m.Teams[ti].Members[mi]}, true
			}
		}
	}
	return MemberRef{}, false
}

// FindByToken looks up a roster entry by session token.
func (m *Match) FindByToken(token string) (MemberRef, bool) {
	if token == "" {
		return MemberRef{}, false
	}
	for ti := range m.Teams {
		for mi := range m.Teams[ti].Members {
			if tokenEqual(m.Teams[ti].Members[mi].SessionToken, token) {
				return MemberRef{Team: ti, Index: mi, Member: &m.Teams[ti].Members[mi]}, true
			}
		}
	}
	return MemberRef{}, false
}

func (m *Match) Host() (MemberRef, bool) {
	for ti := range m.Teams {
		for mi := range m.Teams[ti].Members {
			if m.Teams[ti].Members[mi].IsHost() {
				return MemberRef{Team: ti, Index: mi, Member: &m.Teams[ti].Members[mi]}, true
			}
		}
	}
	return MemberRef{}, false
}

func (m *Match) HostCount() int {
	n := 0
	for _, t := range m.Teams {
		for _, mem := range t.Members {
			if mem.IsHost() {
				n++
			}
		}
	}
	return n
}

func (m *Match) MemberCount() int {
	n := 0
	for _, t := range m.Teams {
		n += len(t.Members)
	}
	return n
}

// ValidateRoster checks the roster invariants that hold in every status:
// well-formed members, unique identity keys and at most one host.
func (m *Match) ValidateRoster() error {
	seen := make(map[string]bool)
	for _, t := range m.Teams {
		for _, mem := range t.Members {
			if err := mem.Validate(); err != nil {
				return err
			}
			k := mem.Key()
			if seen[k] {
				return errors.New("duplicate participant " + k)
			}
			seen[k] = true
		}
	}
	if m.HostCount() > 1 {
		return errors.New("more than one host")
	}
	return nil
}

// IsCreatorGuestToken reports whether token is the anonymous creator's capability.
func (m *Match) IsCreatorGuestToken(token string) bool {
	return token != "" && m.CreatorGuestToken != nil && tokenEqual(*m.CreatorGuestToken, token)
}

func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Snapshot returns a deep copy with every secret cleared. It is what leaves
// the service over HTTP and WebSocket.
func (m *Match) Snapshot() *Match {
	cp := *m
	cp.CreatorGuestToken = nil
	cp.Teams = make([]MatchTeam, len(m.Teams))
	for i, t := range m.Teams {
		members := make([]MatchTeamMember, len(t.Members))
		for j, mem := range t.Members {
			mem.SessionToken = ""
			members[j] = mem
		}
		t.Members = members
		cp.Teams[i] = t
	}
	return &cp
}
