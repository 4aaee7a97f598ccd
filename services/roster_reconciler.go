package services

import (
	"context"
	"strings"
	"time"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/rotisserie/eris"
)

// RosterReconciler turns a full two-team proposal into the roster that
// replaces the current one. People already on the roster keep their session
// token; the host keeps both role and team regardless of what was submitted.
type RosterReconciler struct {
	dir      MembershipDirectory
	now      func() time.Time
	newToken func() (string, error)
}

func NewRosterReconciler(dir MembershipDirectory) *RosterReconciler {
	return &RosterReconciler{dir: dir, now: time.Now, newToken: utils.NewToken}
}

// hostMatcher recognises the host in a proposal even when the client
// describes them differently from how they are stored.
type hostMatcher struct {
	key          string
	membershipID string
	phone        string
	nameKey      string
}

func (h hostMatcher) matchesInput(in PlayerInput) bool {
	if h.membershipID != "" && strings.TrimSpace(in.MembershipID) == h.membershipID {
		return true
	}
	if h.phone != "" && utils.NormalizePhone(in.PhoneNumber) == h.phone {
		return true
	}
	if h.nameKey != "" && in.MembershipID == "" && in.PhoneNumber == "" && utils.NameKey(in.GuestName) == h.nameKey {
		return true
	}
	return false
}

// Reconcile computes new members per team. m is left untouched. byManager
// enables the staff path: on a match without a host the first submitted
// player becomes host.
func (r *RosterReconciler) Reconcile(ctx context.Context, m *models.Match, proposal [][]PlayerInput, byManager bool) ([][]models.MatchTeamMember, error) {
	if m.Status == models.MatchCompleted {
		return nil, eris.Wrap(ErrAlreadyCompleted, "teams can no longer change")
	}
	if len(proposal) != models.TeamCount {
		return nil, eris.Wrapf(ErrInvalidInput, "expected %d teams, got %d", models.TeamCount, len(proposal))
	}

	hostRef, hasHost := m.Host()
	if !hasHost && !byManager {
		return nil, eris.Wrap(ErrInvalidState, "match has no host")
	}

	existing := make(map[string]models.MatchTeamMember)
	for _, t := range m.Teams {
		for _, mem := range t.Members {
			existing[mem.Key()] = mem
		}
	}

	var host hostMatcher
	if hasHost {
		h := *hostRef.Member
		host.key = h.Key()
		if h.MembershipID != "" {
			host.membershipID = h.MembershipID
			host.nameKey = utils.NameKey(h.MembershipName)
			ms, err := r.dir.ByID(ctx, h.MembershipID)
			if err != nil {
				return nil, err
			}
			if ms != nil {
				host.phone = utils.NormalizePhone(ms.PhoneNumber)
			}
		}
	}

	res := resolver{dir: r.dir, brandID: m.BrandID, matchNames: true}
	out := make([][]models.MatchTeamMember, models.TeamCount)
	for i := range out {
		out[i] = []models.MatchTeamMember{}
	}
	seen := make(map[string]bool)
	if hasHost {
		out[hostRef.Team] = append(out[hostRef.Team], *hostRef.Member)
		seen[host.key] = true
	}

	now := r.now()
	promote := !hasHost
	for ti, entries := range proposal {
		for _, in := range entries {
			if hasHost && host.matchesInput(in) {
				continue
			}
			id, err := res.resolve(ctx, in)
			if err != nil {
				return nil, err
			}
			key := id.Key()
			if hasHost && key == host.key {
				continue
			}
			if seen[key] {
				return nil, eris.Wrapf(ErrConflict, "participant %s appears more than once", key)
			}
			seen[key] = true

			role := models.RoleParticipant
			if promote {
				role = models.RoleHost
				promote = false
			}
			token, joinedAt := "", now
			if prev, ok := existing[key]; ok {
				token, joinedAt = prev.SessionToken, prev.JoinedAt
			}
			if token == "" {
				if token, err = r.newToken(); err != nil {
					return nil, eris.Wrap(err, "failed to mint session token")
				}
			}
			out[ti] = append(out[ti], models.NewTeamMember(id, role, token, joinedAt))
		}
	}

	check := models.Match{Teams: make([]models.MatchTeam, models.TeamCount)}
	for i := range out {
		check.Teams[i].Members = out[i]
	}
	if err := check.ValidateRoster(); err != nil {
		return nil, eris.Wrap(ErrInvalidState, err.Error())
	}
	if hasHost && check.HostCount() != 1 {
		return nil, eris.Wrap(ErrInvalidState, "roster must keep exactly one host")
	}
	return out, nil
}
