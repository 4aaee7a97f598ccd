package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxMatchCodeAttempts = 20

// MatchNotifier receives committed match changes. Implementations must not
// block the caller.
type MatchNotifier interface {
	MatchCreated(m *models.Match)
	MatchUpdated(m *models.Match)
	MatchEnded(m *models.Match)
	MatchDeleted(matchID string)
}

type noopNotifier struct{}

func (noopNotifier) MatchCreated(*models.Match) {}
func (noopNotifier) MatchUpdated(*models.Match) {}
func (noopNotifier) MatchEnded(*models.Match)   {}
func (noopNotifier) MatchDeleted(string)        {}

type MatchService struct {
	DB       *gorm.DB
	notifier MatchNotifier
	logger   zerolog.Logger
	now      func() time.Time
	newToken func() (string, error)
	newCode  func() (string, error)
}

func NewMatchService(db *gorm.DB, notifier MatchNotifier) *MatchService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &MatchService{
		DB:       db,
		notifier: notifier,
		logger:   log.With().Str("component", "match").Logger(),
		now:      time.Now,
		newToken: utils.NewToken,
		newCode:  utils.NewMatchCode,
	}
}

// --- request / result types ---

type TeamInput struct {
	TeamName string        `json:"teamName"`
	Members  []PlayerInput `json:"members"`
}

type CreateMatchRequest struct {
	TableID               string          `json:"tableId"`
	GameType              models.GameType `json:"gameType"`
	CreatedByMembershipID string          `json:"createdByMembershipId"`
	IsAiAssisted          bool            `json:"isAiAssisted"`
	Teams                 []TeamInput     `json:"teams"`
}

type CreateMatchResult struct {
	Match             *models.Match `json:"match"`
	CreatorGuestToken string        `json:"creatorGuestToken,omitempty"`
	HostSessionToken  string        `json:"hostSessionToken,omitempty"`
}

type JoinMatchRequest struct {
	MatchCode  string      `json:"matchCode"`
	TeamIndex  int         `json:"teamIndex"`
	JoinerInfo PlayerInput `json:"joinerInfo"`
}

type LeaveMatchRequest struct {
	MatchCode  string      `json:"matchCode"`
	LeaverInfo PlayerInput `json:"leaverInfo"`
}

// SessionIdentity is what a participant needs to act on a match.
type SessionIdentity struct {
	MatchID      string                  `json:"matchId"`
	TeamIndex    int                     `json:"teamIndex"`
	Role         models.MemberRole       `json:"role"`
	SessionToken string                  `json:"sessionToken"`
	Member       *models.MatchTeamMember `json:"member"`
}

type ListMatchesFilter struct {
	ClubID  string
	TableID string
	Status  models.MatchStatus
	Limit   int
}

// --- queries ---

func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.WithContext(ctx).First(&m, "match_id = ?", matchID).Error; err != nil {
		return nil, notFoundOr(err, "match %s", matchID)
	}
	return &m, nil
}

func (s *MatchService) GetMatchByCode(ctx context.Context, code string) (*models.Match, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, eris.Wrap(ErrInvalidInput, "matchCode is required")
	}
	var m models.Match
	if err := s.DB.WithContext(ctx).First(&m, "match_code = ?", code).Error; err != nil {
		return nil, notFoundOr(err, "match code %s", code)
	}
	return &m, nil
}

func (s *MatchService) ListMatches(ctx context.Context, f ListMatchesFilter) ([]models.Match, error) {
	q := s.DB.WithContext(ctx).Model(&models.Match{})
	if f.ClubID != "" {
		q = q.Where("club_id = ?", f.ClubID)
	}
	if f.TableID != "" {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var matches []models.Match
	if err := q.Order("created_at DESC").Limit(limit).Find(&matches).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list matches")
	}
	return matches, nil
}

// --- create ---

// CreateMatch reserves the table and creates a pending match. manager is the
// authenticated staff caller, or nil.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest, manager *models.Manager) (*CreateMatchResult, error) {
	if strings.TrimSpace(req.TableID) == "" {
		return nil, eris.Wrap(ErrInvalidInput, "tableId is required")
	}
	if !req.GameType.Valid() {
		return nil, eris.Wrapf(ErrInvalidInput, "unsupported gameType %q", req.GameType)
	}
	if len(req.Teams) != models.TeamCount {
		return nil, eris.Wrapf(ErrInvalidInput, "a match needs exactly %d teams", models.TeamCount)
	}

	var result CreateMatchResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, "id = ?", req.TableID).Error; err != nil {
			return notFoundOr(err, "table %s", req.TableID)
		}
		if table.Status != models.TableEmpty {
			return eris.Wrapf(ErrTableUnavailable, "table %s is %s", table.ID, table.Status)
		}
		var club models.Club
		if err := tx.First(&club, "id = ?", table.ClubID).Error; err != nil {
			return eris.Wrapf(err, "failed to load club %s", table.ClubID)
		}
		if manager != nil && manager.ClubID != club.ID {
			return eris.Wrap(ErrForbidden, "manager does not belong to this club")
		}

		res := resolver{dir: NewMembershipDirectory(tx), brandID: club.BrandID}
		now := s.now()
		teams := make([]models.MatchTeam, models.TeamCount)
		seen := make(map[string]bool)
		for i, in := range req.Teams {
			teams[i] = models.MatchTeam{TeamName: teamName(in.TeamName, i), Members: []models.MatchTeamMember{}}
			for _, p := range in.Members {
				id, err := res.resolve(ctx, p)
				if err != nil {
					return err
				}
				if seen[id.Key()] {
					return eris.Wrapf(ErrConflict, "participant %s appears more than once", id.Key())
				}
				seen[id.Key()] = true
				token, err := s.newToken()
				if err != nil {
					return eris.Wrap(err, "failed to mint session token")
				}
				teams[i].Members = append(teams[i].Members, models.NewTeamMember(id, models.RoleParticipant, token, now))
			}
		}

		m := &models.Match{
			MatchID:      uuid.NewString(),
			TableID:      table.ID,
			ClubID:       club.ID,
			BrandID:      club.BrandID,
			GameType:     req.GameType,
			IsAiAssisted: req.IsAiAssisted,
			Status:       models.MatchPending,
			Teams:        teams,
		}
		if manager != nil {
			m.ManagerID = &manager.ID
		}

		switch {
		case strings.TrimSpace(req.CreatedByMembershipID) != "":
			id, err := res.resolve(ctx, PlayerInput{MembershipID: req.CreatedByMembershipID})
			if err != nil {
				return err
			}
			creator := id.(models.Registered)
			m.CreatedByMembershipID = &creator.MembershipID
			if ref, ok := m.FindMember(id.Key()); ok {
				ref.Member.Role = models.RoleHost
			} else {
				token, err := s.newToken()
				if err != nil {
					return eris.Wrap(err, "failed to mint session token")
				}
				host := models.NewTeamMember(id, models.RoleHost, token, now)
				m.Teams[0].Members = append([]models.MatchTeamMember{host}, m.Teams[0].Members...)
			}
		case manager == nil:
			ref, ok := firstGuestOrMember(m)
			if !ok {
				return eris.Wrap(ErrInvalidInput, "at least one player is required")
			}
			ref.Member.Role = models.RoleHost
			token, err := s.newToken()
			if err != nil {
				return eris.Wrap(err, "failed to mint creator token")
			}
			m.CreatorGuestToken = &token
			result.CreatorGuestToken = token
		}

		if (manager == nil || m.CreatedByMembershipID != nil) && m.HostCount() != 1 {
			return eris.Wrap(ErrInvalidState, "a new match must have exactly one host")
		}
		if err := m.ValidateRoster(); err != nil {
			return eris.Wrap(ErrInvalidState, err.Error())
		}

		code, err := s.uniqueMatchCode(tx)
		if err != nil {
			return err
		}
		m.MatchCode = code

		if err := tx.Create(m).Error; err != nil {
			return eris.Wrap(err, "failed to create match")
		}
		if err := setTableStatus(tx, table.ID, models.TableInUse); err != nil {
			return err
		}

		result.Match = m
		if ref, ok := m.Host(); ok {
			result.HostSessionToken = ref.Member.SessionToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", result.Match.MatchID).
		Str("match_code", result.Match.MatchCode).
		Str("table_id", result.Match.TableID).
		Msg("match created")
	s.notifier.MatchCreated(result.Match.Snapshot())
	return &result, nil
}

func firstGuestOrMember(m *models.Match) (models.MemberRef, bool) {
	for ti := range m.Teams {
		for mi := range m.Teams[ti].Members {
			if m.Teams[ti].Members[mi].GuestName != "" {
				return models.MemberRef{Team: ti, Index: mi, Member: &m.Teams[ti].Members[mi]}, true
			}
		}
	}
	for ti := range m.Teams {
		if len(m.Teams[ti].Members) > 0 {
			return models.MemberRef{Team: ti, Index: 0, Member: &m.Teams[ti].Members[0]}, true
		}
	}
	return models.MemberRef{}, false
}

func (s *MatchService) uniqueMatchCode(tx *gorm.DB) (string, error) {
	for i := 0; i < maxMatchCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", eris.Wrap(err, "failed to generate match code")
		}
		var n int64
		if err := tx.Model(&models.Match{}).Where("match_code = ?", code).Count(&n).Error; err != nil {
			return "", eris.Wrap(err, "failed to check match code")
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", eris.Errorf("no free match code after %d attempts", maxMatchCodeAttempts)
}

// --- roster changes ---

func (s *MatchService) JoinMatch(ctx context.Context, req JoinMatchRequest) (*models.Match, *SessionIdentity, error) {
	if req.TeamIndex < 0 || req.TeamIndex >= models.TeamCount {
		return nil, nil, eris.Wrapf(ErrInvalidInput, "teamIndex %d out of range", req.TeamIndex)
	}
	found, err := s.GetMatchByCode(ctx, req.MatchCode)
	if err != nil {
		return nil, nil, err
	}

	var joined *SessionIdentity
	m, err := s.mutate(ctx, found.MatchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status == models.MatchCompleted {
			return eris.Wrap(ErrInvalidState, "match already completed")
		}
		res := resolver{dir: NewMembershipDirectory(tx), brandID: m.BrandID}
		id, err := res.resolve(ctx, req.JoinerInfo)
		if err != nil {
			return err
		}
		if _, ok := m.FindMember(id.Key()); ok {
			return eris.Wrapf(ErrConflict, "%s already joined this match", id.DisplayName())
		}
		team := &m.Teams[req.TeamIndex]
		if len(team.Members) >= models.MaxMembersPerTeam {
			return eris.Wrapf(ErrRosterTooLarge, "team %d is full", req.TeamIndex)
		}
		token, err := s.newToken()
		if err != nil {
			return eris.Wrap(err, "failed to mint session token")
		}
		role := models.RoleParticipant
		if m.HostCount() == 0 && m.ManagerID == nil {
			role = models.RoleHost
		}
		member := models.NewTeamMember(id, role, token, s.now())
		team.Members = append(team.Members, member)
		joined = &SessionIdentity{
			MatchID:      m.MatchID,
			TeamIndex:    req.TeamIndex,
			Role:         role,
			SessionToken: token,
			Member:       &member,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.notifier.MatchUpdated(m.Snapshot())
	return m, joined, nil
}

// LeaveMatch removes the described player while the match is pending.
func (s *MatchService) LeaveMatch(ctx context.Context, req LeaveMatchRequest) (*models.Match, error) {
	found, err := s.GetMatchByCode(ctx, req.MatchCode)
	if err != nil {
		return nil, err
	}
	m, err := s.mutate(ctx, found.MatchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchPending {
			return eris.Wrapf(ErrInvalidState, "players can only leave a pending match (status %s)", m.Status)
		}
		res := resolver{dir: NewMembershipDirectory(tx), brandID: m.BrandID}
		id, err := res.resolve(ctx, req.LeaverInfo)
		if err != nil {
			return err
		}
		ref, ok := m.FindMember(id.Key())
		if !ok {
			return eris.Wrapf(ErrNotFound, "%s is not in this match", id.DisplayName())
		}
		return removeMember(m, ref)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.MatchUpdated(m.Snapshot())
	return m, nil
}

// LeaveWithToken removes the member owning sessionToken while the match is pending.
func (s *MatchService) LeaveWithToken(ctx context.Context, matchID, sessionToken string) (*models.Match, error) {
	m, err := s.mutate(ctx, matchID, func(_ *gorm.DB, m *models.Match) error {
		ref, ok := m.FindByToken(sessionToken)
		if !ok {
			return eris.Wrap(ErrForbidden, "invalid session token")
		}
		return removeMember(m, ref)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.MatchUpdated(m.Snapshot())
	return m, nil
}

// removeMember drops ref from the roster. A departing host hands the role
// to the first remaining member.
func removeMember(m *models.Match, ref models.MemberRef) error {
	if m.Status != models.MatchPending {
		return eris.Wrapf(ErrInvalidState, "players can only leave a pending match (status %s)", m.Status)
	}
	wasHost := ref.Member.IsHost()
	team := &m.Teams[ref.Team]
	team.Members = append(team.Members[:ref.Index], team.Members[ref.Index+1:]...)
	if !wasHost {
		return nil
	}
	for ti := range m.Teams {
		if len(m.Teams[ti].Members) > 0 {
			m.Teams[ti].Members[0].Role = models.RoleHost
			return nil
		}
	}
	return nil
}

// SessionIdentityFor returns role and token of the described player.
func (s *MatchService) SessionIdentityFor(ctx context.Context, matchID string, who PlayerInput) (*SessionIdentity, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	res := resolver{dir: NewMembershipDirectory(s.DB.WithContext(ctx)), brandID: m.BrandID}
	id, err := res.resolve(ctx, who)
	if err != nil {
		return nil, err
	}
	ref, ok := m.FindMember(id.Key())
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "%s is not in this match", id.DisplayName())
	}
	return identityOf(m, ref), nil
}

func identityOf(m *models.Match, ref models.MemberRef) *SessionIdentity {
	member := *ref.Member
	return &SessionIdentity{
		MatchID:      m.MatchID,
		TeamIndex:    ref.Team,
		Role:         member.Role,
		SessionToken: member.SessionToken,
		Member:       &member,
	}
}

// UpdateTeams replaces the roster through the reconciler.
func (s *MatchService) UpdateTeams(ctx context.Context, matchID string, teams []TeamInput, byManager bool) (*models.Match, error) {
	if len(teams) != models.TeamCount {
		return nil, eris.Wrapf(ErrInvalidInput, "expected %d teams, got %d", models.TeamCount, len(teams))
	}
	proposal := make([][]PlayerInput, len(teams))
	for i, t := range teams {
		proposal[i] = t.Members
	}
	m, err := s.mutate(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		rec := NewRosterReconciler(NewMembershipDirectory(tx))
		rec.now, rec.newToken = s.now, s.newToken
		members, err := rec.Reconcile(ctx, m, proposal, byManager)
		if err != nil {
			return err
		}
		for i := range m.Teams {
			m.Teams[i].Members = members[i]
			if name := strings.TrimSpace(teams[i].TeamName); name != "" {
				m.Teams[i].TeamName = name
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.MatchUpdated(m.Snapshot())
	return m, nil
}

// --- lifecycle ---

func (s *MatchService) UpdateScore(ctx context.Context, matchID string, teamIndex, score int) (*models.Match, error) {
	if teamIndex < 0 || teamIndex >= models.TeamCount {
		return nil, eris.Wrapf(ErrInvalidInput, "teamIndex %d out of range", teamIndex)
	}
	if score < 0 {
		return nil, eris.Wrap(ErrInvalidInput, "score can not be negative")
	}
	m, err := s.mutate(ctx, matchID, func(_ *gorm.DB, m *models.Match) error {
		if m.Status == models.MatchCompleted {
			return eris.Wrap(ErrAlreadyCompleted, "score is final")
		}
		m.Teams[teamIndex].Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.MatchUpdated(m.Snapshot())
	return m, nil
}

// StartMatch moves a pending match to ongoing. A lone player is moved to
// team 0, and a team with one player is renamed after that player.
func (s *MatchService) StartMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := s.mutate(ctx, matchID, func(_ *gorm.DB, m *models.Match) error {
		if m.Status != models.MatchPending {
			return eris.Wrapf(ErrInvalidState, "only a pending match can start (status %s)", m.Status)
		}
		if m.MemberCount() == 0 {
			return eris.Wrap(ErrEmptyRoster, "add players before starting")
		}
		for i, t := range m.Teams {
			if len(t.Members) > models.MaxMembersPerTeam {
				return eris.Wrapf(ErrRosterTooLarge, "team %d has %d players", i, len(t.Members))
			}
		}
		// A solo match always occupies the first slot.
		if m.MemberCount() == 1 && len(m.Teams[0].Members) == 0 {
			for i := 1; i < len(m.Teams); i++ {
				if len(m.Teams[i].Members) == 1 {
					m.Teams[0].Members = append(m.Teams[0].Members, m.Teams[i].Members[0])
					m.Teams[i].Members = []models.MatchTeamMember{}
					break
				}
			}
		}
		for i := range m.Teams {
			if len(m.Teams[i].Members) == 1 {
				m.Teams[i].TeamName = m.Teams[i].Members[0].Identity().DisplayName()
			}
		}
		now := s.now()
		m.Status = models.MatchOngoing
		m.StartTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Msg("match started")
	s.notifier.MatchUpdated(m.Snapshot())
	return m, nil
}

// EndMatch completes the match, marks a winner when exactly one team holds
// the top score, and frees the table.
func (s *MatchService) EndMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := s.mutate(ctx, matchID, func(tx *gorm.DB, m *models.Match) error {
		if m.Status == models.MatchCompleted {
			return eris.Wrap(ErrAlreadyCompleted, "match already ended")
		}
		winner := winningTeam(m.Teams)
		for i := range m.Teams {
			m.Teams[i].IsWinner = i == winner
		}
		now := s.now()
		m.Status = models.MatchCompleted
		m.EndTime = &now
		return setTableStatus(tx, m.TableID, models.TableEmpty)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Msg("match ended")
	snap := m.Snapshot()
	s.notifier.MatchUpdated(snap)
	s.notifier.MatchEnded(snap)
	return m, nil
}

// winningTeam returns the index of the strictly highest score, or -1 on a tie.
func winningTeam(teams []models.MatchTeam) int {
	winner, best, tied := -1, 0, false
	for i, t := range teams {
		switch {
		case winner == -1 || t.Score > best:
			winner, best, tied = i, t.Score, false
		case t.Score == best:
			tied = true
		}
	}
	if tied {
		return -1
	}
	return winner
}

// DeleteMatch removes the match in any status and frees its table.
func (s *MatchService) DeleteMatch(ctx context.Context, matchID string) error {
	_, err := s.deleteMatch(ctx, matchID, false)
	return err
}

// deleteMatch deletes under the row lock. With onlyPending a match that has
// left pending is kept and deleted reports false.
func (s *MatchService) deleteMatch(ctx context.Context, matchID string, onlyPending bool) (bool, error) {
	deleted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "match_id = ?", matchID).Error; err != nil {
			return notFoundOr(err, "match %s", matchID)
		}
		if onlyPending && m.Status != models.MatchPending {
			return nil
		}
		if err := recheckAccess(ctx, &m); err != nil {
			return err
		}
		if err := tx.Delete(&models.Match{}, "match_id = ?", matchID).Error; err != nil {
			return eris.Wrap(err, "failed to delete match")
		}
		deleted = true
		return setTableStatus(tx, m.TableID, models.TableEmpty)
	})
	if err != nil || !deleted {
		return false, err
	}
	s.logger.Info().Str("match_id", matchID).Msg("match deleted")
	s.notifier.MatchDeleted(matchID)
	return true, nil
}

// ExpireStalePending deletes matches left pending longer than ttl. A match
// that started after the scan is skipped.
func (s *MatchService) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	var ids []string
	cutoff := s.now().Add(-ttl)
	if err := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("status = ? AND created_at < ?", models.MatchPending, cutoff).
		Pluck("match_id", &ids).Error; err != nil {
		return 0, eris.Wrap(err, "failed to find stale matches")
	}
	removed := 0
	for _, id := range ids {
		deleted, err := s.deleteMatch(ctx, id, true)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

// --- helpers ---

// mutate loads the match under a row lock, applies fn and writes it back
// guarded by the version column, all in one transaction.
func (s *MatchService) mutate(ctx context.Context, matchID string, fn func(tx *gorm.DB, m *models.Match) error) (*models.Match, error) {
	var out *models.Match
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "match_id = ?", matchID).Error; err != nil {
			return notFoundOr(err, "match %s", matchID)
		}
		if len(m.Teams) != models.TeamCount {
			return eris.Errorf("match %s has %d teams stored", matchID, len(m.Teams))
		}
		if err := recheckAccess(ctx, &m); err != nil {
			return err
		}
		if err := fn(tx, &m); err != nil {
			return err
		}
		if err := m.ValidateRoster(); err != nil {
			return eris.Wrap(ErrInvalidState, err.Error())
		}
		prev := m.Version
		m.Version++
		res := tx.Model(&m).Where("version = ?", prev).Select("*").Updates(&m)
		if res.Error != nil {
			return eris.Wrap(res.Error, "failed to save match")
		}
		if res.RowsAffected == 0 {
			return eris.Wrap(ErrConflict, "match was modified concurrently, retry")
		}
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func setTableStatus(tx *gorm.DB, tableID string, status models.TableStatus) error {
	if err := tx.Model(&models.Table{}).Where("id = ?", tableID).Update("status", status).Error; err != nil {
		return eris.Wrapf(err, "failed to set table %s to %s", tableID, status)
	}
	return nil
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return eris.Wrapf(ErrNotFound, format, args...)
	}
	return eris.Wrapf(err, "failed to load "+format, args...)
}

func teamName(name string, index int) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fmt.Sprintf("Team %d", index+1)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AuthenticateSession returns the role owning sessionToken in the match.
func (s *MatchService) AuthenticateSession(ctx context.Context, matchID, sessionToken string) (models.MemberRole, error) {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	ref, ok := m.FindByToken(sessionToken)
	if !ok {
		return "", eris.Wrap(ErrForbidden, "invalid session token")
	}
	return ref.Member.Role, nil
}
