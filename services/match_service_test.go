package services

import (
	"strings"
	"testing"
	"time"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateMatch_AnonymousGuestBecomesHost(t *testing.T) {
	f := newFixture(t)

	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))

	m := res.Match
	assert.Equal(t, models.MatchPending, m.Status)
	assert.Len(t, m.MatchCode, utils.MatchCodeLength)
	require.Len(t, m.Teams, 2)
	assert.Equal(t, "Team 1", m.Teams[0].TeamName)
	assert.Equal(t, "Team 2", m.Teams[1].TeamName)

	host, ok := m.Host()
	require.True(t, ok)
	assert.Equal(t, "Alice", host.Member.GuestName)
	assert.Equal(t, 1, m.HostCount())
	assert.NotEmpty(t, res.CreatorGuestToken)
	assert.Equal(t, host.Member.SessionToken, res.HostSessionToken)
	assert.True(t, m.IsCreatorGuestToken(res.CreatorGuestToken))

	assert.Equal(t, models.TableInUse, f.tableStatus(t, f.table.ID))
	assert.Equal(t, []string{"match_created"}, f.notes.names())
}

func TestCreateMatch_PrefersGuestOverMemberForHost(t *testing.T) {
	f := newFixture(t)

	res := f.createGuestMatch(t,
		[]PlayerInput{{PhoneNumber: f.alice.PhoneNumber}},
		guests("Walk-in Wally"))

	host, ok := res.Match.Host()
	require.True(t, ok)
	assert.Equal(t, "Walk-in Wally", host.Member.GuestName)
	assert.Equal(t, 1, host.Team)
	assert.Equal(t, f.alice.ID, res.Match.Teams[0].Members[0].MembershipID)
}

func TestCreateMatch_RegisteredCreatorIsPrependedAsHost(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:               f.table.ID,
		GameType:              models.GameTypeCarom,
		CreatedByMembershipID: f.alice.ID,
		Teams:                 twoTeams(guests("Guest One"), []PlayerInput{{MembershipID: f.bob.ID}}),
	}, nil)
	require.NoError(t, err)

	m := res.Match
	require.Len(t, m.Teams[0].Members, 2)
	first := m.Teams[0].Members[0]
	assert.Equal(t, f.alice.ID, first.MembershipID)
	assert.Equal(t, "Alice Nguyen", first.MembershipName)
	assert.Equal(t, models.RoleHost, first.Role)
	assert.Equal(t, 1, m.HostCount())
	assert.Empty(t, res.CreatorGuestToken)
	assert.Equal(t, first.SessionToken, res.HostSessionToken)
	require.NotNil(t, m.CreatedByMembershipID)
	assert.Equal(t, f.alice.ID, *m.CreatedByMembershipID)
}

func TestCreateMatch_RegisteredCreatorAlreadyListedIsPromotedInPlace(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:               f.table.ID,
		GameType:              models.GameTypePool,
		CreatedByMembershipID: f.bob.ID,
		Teams:                 twoTeams(guests("Guest One"), []PlayerInput{{PhoneNumber: "0902 222 222"}}),
	}, nil)
	require.NoError(t, err)

	host, ok := res.Match.Host()
	require.True(t, ok)
	assert.Equal(t, 1, host.Team)
	assert.Equal(t, f.bob.ID, host.Member.MembershipID)
	assert.Equal(t, 2, res.Match.MemberCount())
}

func TestCreateMatch_ManagerWithoutCreatorStartsWithoutHost(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:  f.table.ID,
		GameType: models.GameTypePool,
		Teams:    twoTeams(guests("A"), guests("B")),
	}, f.manager)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Match.HostCount())
	require.NotNil(t, res.Match.ManagerID)
	assert.Equal(t, f.manager.ID, *res.Match.ManagerID)
	assert.Empty(t, res.CreatorGuestToken)
	assert.Empty(t, res.HostSessionToken)
}

func TestCreateMatch_ManagerFromAnotherClubIsForbidden(t *testing.T) {
	f := newFixture(t)
	stranger := &models.Manager{ID: "m-2", ClubID: "another-club"}

	_, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:  f.table.ID,
		GameType: models.GameTypePool,
		Teams:    twoTeams(guests("A"), guests("B")),
	}, stranger)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.TableEmpty, f.tableStatus(t, f.table.ID))
}

func TestCreateMatch_TableUnavailable(t *testing.T) {
	f := newFixture(t)
	f.createGuestMatch(t, guests("Alice"), guests("Bob"))

	_, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:  f.table.ID,
		GameType: models.GameTypePool,
		Teams:    twoTeams(guests("Carl"), guests("Dina")),
	}, nil)
	assert.ErrorIs(t, err, ErrTableUnavailable)

	require.NoError(t, f.db.Model(&models.Table{}).Where("id = ?", f.table2.ID).
		Update("status", models.TableMaintenance).Error)
	_, err = f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:  f.table2.ID,
		GameType: models.GameTypePool,
		Teams:    twoTeams(guests("Carl"), guests("Dina")),
	}, nil)
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.Equal(t, models.TableMaintenance, f.tableStatus(t, f.table2.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Match{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateMatch_FailuresLeaveTableEmpty(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		req  CreateMatchRequest
		want error
	}{
		{
			name: "banned member",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				Teams: twoTeams([]PlayerInput{{PhoneNumber: f.banned.PhoneNumber}}, guests("B"))},
			want: ErrForbidden,
		},
		{
			name: "membership of another brand",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				Teams: twoTeams([]PlayerInput{{MembershipID: f.foreign.ID}}, guests("B"))},
			want: ErrBrandMismatch,
		},
		{
			name: "unknown creator",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				CreatedByMembershipID: "nobody", Teams: twoTeams(guests("A"), guests("B"))},
			want: ErrNotFound,
		},
		{
			name: "one team",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				Teams: []TeamInput{{Members: guests("A")}}},
			want: ErrInvalidInput,
		},
		{
			name: "unknown game type",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: "snooker",
				Teams: twoTeams(guests("A"), guests("B"))},
			want: ErrInvalidInput,
		},
		{
			name: "nobody to host",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				Teams: twoTeams(nil, nil)},
			want: ErrInvalidInput,
		},
		{
			name: "same guest twice",
			req: CreateMatchRequest{TableID: f.table.ID, GameType: models.GameTypePool,
				Teams: twoTeams(guests("Bob"), guests("  bob "))},
			want: ErrConflict,
		},
		{
			name: "unknown table",
			req: CreateMatchRequest{TableID: "missing", GameType: models.GameTypePool,
				Teams: twoTeams(guests("A"), guests("B"))},
			want: ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateMatch(t.Context(), tc.req, nil)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, models.TableEmpty, f.tableStatus(t, f.table.ID))
		})
	}
}

func TestCreateMatch_SessionTokensAreUnique(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("A", "B", "C"), guests("D", "E"))

	seen := map[string]bool{}
	for _, team := range res.Match.Teams {
		for _, mem := range team.Members {
			require.NotEmpty(t, mem.SessionToken)
			assert.False(t, seen[mem.SessionToken], "duplicate token")
			seen[mem.SessionToken] = true
		}
	}
}

func TestCreateMatch_NotificationsCarryNoSecrets(t *testing.T) {
	f := newFixture(t)
	f.createGuestMatch(t, guests("Alice"), guests("Bob"))

	n := f.notes.last()
	assert.Nil(t, n.match.CreatorGuestToken)
	for _, team := range n.match.Teams {
		for _, mem := range team.Members {
			assert.Empty(t, mem.SessionToken)
		}
	}
}

func TestJoinMatch(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	code := res.Match.MatchCode

	m, joined, err := f.svc.JoinMatch(t.Context(), JoinMatchRequest{
		MatchCode:  code,
		TeamIndex:  1,
		JoinerInfo: PlayerInput{PhoneNumber: f.carol.PhoneNumber},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleParticipant, joined.Role)
	assert.NotEmpty(t, joined.SessionToken)
	require.Len(t, m.Teams[1].Members, 2)
	assert.Equal(t, f.carol.ID, m.Teams[1].Members[1].MembershipID)
	assert.Equal(t, "match_updated", f.notes.last().event)

	_, _, err = f.svc.JoinMatch(t.Context(), JoinMatchRequest{
		MatchCode:  code,
		TeamIndex:  0,
		JoinerInfo: PlayerInput{PhoneNumber: "0903-333-333"},
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, _, err = f.svc.JoinMatch(t.Context(), JoinMatchRequest{MatchCode: code, TeamIndex: 2, JoinerInfo: PlayerInput{GuestName: "X"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = f.svc.JoinMatch(t.Context(), JoinMatchRequest{MatchCode: "ZZZZZZ", JoinerInfo: PlayerInput{GuestName: "X"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinMatch_CodeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))

	got, err := f.svc.GetMatchByCode(t.Context(), "  "+strings.ToLower(res.Match.MatchCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, res.Match.MatchID, got.MatchID)
}

func TestJoinMatch_TeamFull(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("A1", "A2", "A3", "A4"), guests("B1"))

	_, _, err := f.svc.JoinMatch(t.Context(), JoinMatchRequest{
		MatchCode:  res.Match.MatchCode,
		TeamIndex:  0,
		JoinerInfo: PlayerInput{GuestName: "A5"},
	})
	assert.ErrorIs(t, err, ErrRosterTooLarge)
	assert.Equal(t, fiber.StatusBadRequest, StatusCode(err))
}

func TestJoinMatch_RejectedOnceCompleted(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("A"), guests("B"))
	_, err := f.svc.EndMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)

	_, _, err = f.svc.JoinMatch(t.Context(), JoinMatchRequest{MatchCode: res.Match.MatchCode, JoinerInfo: PlayerInput{GuestName: "Late"}})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestJoinMatch_AllowedWhileOngoing(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("A"), guests("B"))
	_, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)

	m, _, err := f.svc.JoinMatch(t.Context(), JoinMatchRequest{MatchCode: res.Match.MatchCode, TeamIndex: 1, JoinerInfo: PlayerInput{GuestName: "C"}})
	require.NoError(t, err)
	assert.Equal(t, 3, m.MemberCount())
}

func TestLeaveMatch_HostHandsOver(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice", "Ann"), guests("Bob"))

	m, err := f.svc.LeaveMatch(t.Context(), LeaveMatchRequest{
		MatchCode:  res.Match.MatchCode,
		LeaverInfo: PlayerInput{GuestName: "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.MemberCount())
	host, ok := m.Host()
	require.True(t, ok)
	assert.Equal(t, "Ann", host.Member.GuestName)

	_, err = f.svc.LeaveMatch(t.Context(), LeaveMatchRequest{
		MatchCode:  res.Match.MatchCode,
		LeaverInfo: PlayerInput{GuestName: "Nobody"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveMatch_OnlyWhilePending(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	_, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)

	_, err = f.svc.LeaveMatch(t.Context(), LeaveMatchRequest{MatchCode: res.Match.MatchCode, LeaverInfo: PlayerInput{GuestName: "Bob"}})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLeaveWithToken(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	bobToken := res.Match.Teams[1].Members[0].SessionToken

	m, err := f.svc.LeaveWithToken(t.Context(), res.Match.MatchID, bobToken)
	require.NoError(t, err)
	assert.Empty(t, m.Teams[1].Members)

	_, err = f.svc.LeaveWithToken(t.Context(), res.Match.MatchID, bobToken)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSessionIdentityFor(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), []PlayerInput{{MembershipID: f.bob.ID}})

	ident, err := f.svc.SessionIdentityFor(t.Context(), res.Match.MatchID, PlayerInput{MembershipID: f.bob.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, ident.TeamIndex)
	assert.Equal(t, models.RoleParticipant, ident.Role)
	assert.Equal(t, res.Match.Teams[1].Members[0].SessionToken, ident.SessionToken)

	ident, err = f.svc.SessionIdentityFor(t.Context(), res.Match.MatchID, PlayerInput{GuestName: "ALICE"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, ident.Role)

	_, err = f.svc.SessionIdentityFor(t.Context(), res.Match.MatchID, PlayerInput{GuestName: "Zed"})
	assert.ErrorIs(t, err, ErrNotFound)

	role, err := f.svc.AuthenticateSession(t.Context(), res.Match.MatchID, ident.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, role)
	_, err = f.svc.AuthenticateSession(t.Context(), res.Match.MatchID, "bogus")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateScore(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID

	m, err := f.svc.UpdateScore(t.Context(), id, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Teams[1].Score)
	assert.EqualValues(t, 1, m.Version)

	_, err = f.svc.UpdateScore(t.Context(), id, 3, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.UpdateScore(t.Context(), id, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.EndMatch(t.Context(), id)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(t.Context(), id, 0, 9)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	stored, err := f.svc.GetMatch(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Teams[0].Score)
	assert.Equal(t, models.MatchCompleted, stored.Status)
}

func TestStartMatch(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), []PlayerInput{{MembershipID: f.bob.ID}, {GuestName: "Ben"}})

	m, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchOngoing, m.Status)
	require.NotNil(t, m.StartTime)
	assert.Equal(t, "Alice", m.Teams[0].TeamName)
	assert.Equal(t, "Team 2", m.Teams[1].TeamName)
	assert.Equal(t, models.TableInUse, f.tableStatus(t, f.table.ID))

	_, err = f.svc.StartMatch(t.Context(), res.Match.MatchID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartMatch_SoloMemberNameUsed(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Walker"), []PlayerInput{{MembershipID: f.carol.ID}})

	m, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	assert.Equal(t, "Walker", m.Teams[0].TeamName)
	assert.Equal(t, "Carol Lê", m.Teams[1].TeamName)
}

func TestStartMatch_SoloPlayerMovesToFirstTeam(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, nil, guests("Solo"))
	require.Empty(t, res.Match.Teams[0].Members)

	m, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	require.Len(t, m.Teams[0].Members, 1)
	assert.Empty(t, m.Teams[1].Members)
	solo := m.Teams[0].Members[0]
	assert.Equal(t, "Solo", solo.GuestName)
	assert.Equal(t, models.RoleHost, solo.Role)
	assert.Equal(t, res.HostSessionToken, solo.SessionToken)

	stored, err := f.svc.GetMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	require.Len(t, stored.Teams[0].Members, 1)
	assert.Empty(t, stored.Teams[1].Members)
}

func TestStartMatch_SoloPlayerAlreadyFirstStays(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), nil)

	m, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	require.Len(t, m.Teams[0].Members, 1)
	assert.Equal(t, "Alice", m.Teams[0].Members[0].GuestName)
	assert.Equal(t, models.RoleHost, m.Teams[0].Members[0].Role)
	assert.Equal(t, models.MatchOngoing, m.Status)
}

func TestStartMatch_RosterChecks(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID: f.table.ID, GameType: models.GameTypePool, Teams: twoTeams(nil, nil),
	}, f.manager)
	require.NoError(t, err)
	_, err = f.svc.StartMatch(t.Context(), res.Match.MatchID)
	assert.ErrorIs(t, err, ErrEmptyRoster)

	_, err = f.svc.UpdateTeams(t.Context(), res.Match.MatchID,
		twoTeams(guests("P1", "P2", "P3", "P4", "P5"), guests("Q1")), true)
	require.NoError(t, err)
	_, err = f.svc.StartMatch(t.Context(), res.Match.MatchID)
	assert.ErrorIs(t, err, ErrRosterTooLarge)

	stored, err := f.svc.GetMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchPending, stored.Status)
}

func TestEndMatch_WinnerAndTable(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID
	_, err := f.svc.StartMatch(t.Context(), id)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(t.Context(), id, 0, 5)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(t.Context(), id, 1, 3)
	require.NoError(t, err)

	m, err := f.svc.EndMatch(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.MatchCompleted, m.Status)
	require.NotNil(t, m.EndTime)
	assert.True(t, m.Teams[0].IsWinner)
	assert.False(t, m.Teams[1].IsWinner)
	assert.Equal(t, models.TableEmpty, f.tableStatus(t, f.table.ID))

	names := f.notes.names()
	assert.Equal(t, []string{"match_updated", "match_ended"}, names[len(names)-2:])

	_, err = f.svc.EndMatch(t.Context(), id)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestEndMatch_TieHasNoWinner(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID
	_, err := f.svc.UpdateScore(t.Context(), id, 0, 4)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(t.Context(), id, 1, 4)
	require.NoError(t, err)

	m, err := f.svc.EndMatch(t.Context(), id)
	require.NoError(t, err)
	assert.False(t, m.Teams[0].IsWinner)
	assert.False(t, m.Teams[1].IsWinner)
}

func TestWinningTeam(t *testing.T) {
	teams := func(scores ...int) []models.MatchTeam {
		out := make([]models.MatchTeam, len(scores))
		for i, s := range scores {
			out[i].Score = s
		}
		return out
	}
	assert.Equal(t, 0, winningTeam(teams(3, 1)))
	assert.Equal(t, 1, winningTeam(teams(0, 2)))
	assert.Equal(t, -1, winningTeam(teams(0, 0)))
	assert.Equal(t, -1, winningTeam(teams(5, 5)))
}

func TestDeleteMatch_AnyStatusFreesTable(t *testing.T) {
	for _, status := range []models.MatchStatus{models.MatchPending, models.MatchOngoing, models.MatchCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
			id := res.Match.MatchID
			if status != models.MatchPending {
				_, err := f.svc.StartMatch(t.Context(), id)
				require.NoError(t, err)
			}
			if status == models.MatchCompleted {
				_, err := f.svc.EndMatch(t.Context(), id)
				require.NoError(t, err)
			}

			require.NoError(t, f.svc.DeleteMatch(t.Context(), id))
			_, err := f.svc.GetMatch(t.Context(), id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, models.TableEmpty, f.tableStatus(t, f.table.ID))
			assert.Equal(t, "match_deleted", f.notes.last().event)

			assert.ErrorIs(t, f.svc.DeleteMatch(t.Context(), id), ErrNotFound)
		})
	}
}

func TestMutate_DetectsConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID

	_, err := f.svc.mutate(t.Context(), id, func(tx *gorm.DB, m *models.Match) error {
		m.Teams[0].Score = 1
		return tx.Model(&models.Match{}).Where("match_id = ?", id).
			UpdateColumn("version", gorm.Expr("version + 1")).Error
	})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.svc.GetMatch(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Teams[0].Score)
	assert.EqualValues(t, 0, stored.Version)
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture(t)
	stale := f.createGuestMatch(t, guests("Alice"), guests("Bob"))

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err := f.svc.ExpireStalePending(t.Context(), 3*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = f.svc.ExpireStalePending(t.Context(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = f.svc.GetMatch(t.Context(), stale.Match.MatchID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, models.TableEmpty, f.tableStatus(t, f.table.ID))
}

func TestExpireStalePending_SkipsStartedMatches(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	_, err := f.svc.StartMatch(t.Context(), res.Match.MatchID)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	removed, err := f.svc.ExpireStalePending(t.Context(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestExpireStalePending_MatchStartedAfterScanSurvives(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID

	// Start the match between the id scan and the locked delete.
	fired := false
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:start_after_scan", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*[]string); !ok || fired || tx.Error != nil {
			return
		}
		fired = true
		require.NoError(t, f.db.Exec("UPDATE matches SET status = ? WHERE match_id = ?", models.MatchOngoing, id).Error)
	}))

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err := f.svc.ExpireStalePending(t.Context(), time.Hour)
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, 0, removed)

	stored, err := f.svc.GetMatch(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, models.MatchOngoing, stored.Status)
	assert.Equal(t, models.TableInUse, f.tableStatus(t, f.table.ID))
	for _, n := range f.notes.events {
		assert.NotEqual(t, "match_deleted", n.event)
	}
}

func TestDeleteMatch_OnlyPendingKeepsStartedMatch(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID
	_, err := f.svc.StartMatch(t.Context(), id)
	require.NoError(t, err)

	deleted, err := f.svc.deleteMatch(t.Context(), id, true)
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = f.svc.GetMatch(t.Context(), id)
	assert.NoError(t, err)

	deleted, err = f.svc.deleteMatch(t.Context(), id, false)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestMutate_RechecksSessionUnderLock(t *testing.T) {
	f := newFixture(t)
	res := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	id := res.Match.MatchID
	host := res.Match.Teams[0].Members[0]
	require.Equal(t, models.RoleHost, host.Role)
	stale := withMatchAccess(t.Context(), &MatchAccess{Via: AccessSession, Member: &host, Token: host.SessionToken})

	_, err := f.svc.UpdateScore(stale, id, 0, 1)
	require.NoError(t, err, "role unchanged")

	// Hand the host role to Bob after Alice was admitted.
	_, err = f.svc.mutate(t.Context(), id, func(_ *gorm.DB, m *models.Match) error {
		m.Teams[0].Members[0].Role = models.RoleParticipant
		m.Teams[1].Members[0].Role = models.RoleHost
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateScore(stale, id, 0, 5)
	assert.ErrorIs(t, err, ErrForbidden)
	stored, err := f.svc.GetMatch(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Teams[0].Score)

	_, err = f.svc.LeaveWithToken(t.Context(), id, host.SessionToken)
	require.NoError(t, err)
	_, err = f.svc.StartMatch(stale, id)
	assert.ErrorIs(t, err, ErrForbidden, "token no longer in the match")

	_, err = f.svc.UpdateScore(t.Context(), id, 0, 5)
	assert.NoError(t, err, "callers without session access are not rechecked")
}

func TestListMatches(t *testing.T) {
	f := newFixture(t)
	a := f.createGuestMatch(t, guests("Alice"), guests("Bob"))
	_, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID: f.table2.ID, GameType: models.GameTypeCarom, Teams: twoTeams(guests("C"), guests("D")),
	}, nil)
	require.NoError(t, err)
	_, err = f.svc.StartMatch(t.Context(), a.Match.MatchID)
	require.NoError(t, err)

	all, err := f.svc.ListMatches(t.Context(), ListMatchesFilter{ClubID: f.club.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ongoing, err := f.svc.ListMatches(t.Context(), ListMatchesFilter{ClubID: f.club.ID, Status: models.MatchOngoing})
	require.NoError(t, err)
	require.Len(t, ongoing, 1)
	assert.Equal(t, a.Match.MatchID, ongoing[0].MatchID)

	none, err := f.svc.ListMatches(t.Context(), ListMatchesFilter{ClubID: "elsewhere"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
