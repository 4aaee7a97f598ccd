package services

import (
	"cue-club-system/models"

	"github.com/gofiber/fiber/v2"
)

// CreateMatchEndpoint handles POST /matches. Staff callers are picked up from
// the optional manager middleware.
func (s *MatchService) CreateMatchEndpoint(c *fiber.Ctx) error {
	var req CreateMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid JSON",
			"details": err.Error(),
		})
	}
	res, err := s.CreateMatch(c.UserContext(), req, ManagerFrom(c))
	if err != nil {
		return RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CreateMatchResult{
		Match:             res.Match.Snapshot(),
		CreatorGuestToken: res.CreatorGuestToken,
		HostSessionToken:  res.HostSessionToken,
	})
}

// ListMatchesEndpoint handles GET /matches for the manager's club.
func (s *MatchService) ListMatchesEndpoint(c *fiber.Ctx) error {
	mgr := ManagerFrom(c)
	if mgr == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "manager access required"})
	}
	status := models.MatchStatus(c.Query("status"))
	switch status {
	case "", models.MatchPending, models.MatchOngoing, models.MatchCompleted:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown status " + string(status)})
	}
	matches, err := s.ListMatches(c.UserContext(), ListMatchesFilter{
		ClubID:  mgr.ClubID,
		TableID: c.Query("tableId"),
		Status:  status,
		Limit:   c.QueryInt("limit", 50),
	})
	if err != nil {
		return RespondError(c, err)
	}
	out := make([]*models.Match, len(matches))
	for i := range matches {
		out[i] = matches[i].Snapshot()
	}
	return c.JSON(fiber.Map{"matches": out})
}

func (s *MatchService) GetMatchEndpoint(c *fiber.Ctx) error {
	m, err := s.GetMatch(c.UserContext(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

func (s *MatchService) GetMatchByCodeEndpoint(c *fiber.Ctx) error {
	m, err := s.GetMatchByCode(c.UserContext(), c.Params("matchCode"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

func (s *MatchService) JoinMatchEndpoint(c *fiber.Ctx) error {
	var req JoinMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	m, joined, err := s.JoinMatch(c.UserContext(), req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"match":        m.Snapshot(),
		"role":         joined.Role,
		"teamIndex":    joined.TeamIndex,
		"sessionToken": joined.SessionToken,
	})
}

func (s *MatchService) LeaveMatchEndpoint(c *fiber.Ctx) error {
	var req LeaveMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	m, err := s.LeaveMatch(c.UserContext(), req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"match": m.Snapshot()})
}

// LeaveSessionEndpoint lets a participant leave with their own session token.
func (s *MatchService) LeaveSessionEndpoint(c *fiber.Ctx) error {
	access := MatchAccessFrom(c)
	m, err := s.LeaveWithToken(accessContext(c), access.Match.MatchID, access.Token)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"match": m.Snapshot()})
}

// SessionTokenEndpoint handles POST /matches/:matchId/session-token.
func (s *MatchService) SessionTokenEndpoint(c *fiber.Ctx) error {
	var who PlayerInput
	if err := c.BodyParser(&who); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	ident, err := s.SessionIdentityFor(c.UserContext(), c.Params("matchId"), who)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(ident)
}

// MeEndpoint returns the caller's own roster entry, token included.
func (s *MatchService) MeEndpoint(c *fiber.Ctx) error {
	access := MatchAccessFrom(c)
	ref, ok := access.Match.FindByToken(access.Token)
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid session token"})
	}
	return c.JSON(identityOf(access.Match, ref))
}

type updateScoreRequest struct {
	TeamIndex int `json:"teamIndex"`
	Score     int `json:"score"`
}

func (s *MatchService) UpdateScoreEndpoint(c *fiber.Ctx) error {
	var req updateScoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	m, err := s.UpdateScore(accessContext(c), MatchAccessFrom(c).Match.MatchID, req.TeamIndex, req.Score)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

type updateTeamsRequest struct {
	Teams []TeamInput `json:"teams"`
}

func (s *MatchService) UpdateTeamsEndpoint(c *fiber.Ctx) error {
	var req updateTeamsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	access := MatchAccessFrom(c)
	m, err := s.UpdateTeams(accessContext(c), access.Match.MatchID, req.Teams, access.ByManager())
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

func (s *MatchService) StartMatchEndpoint(c *fiber.Ctx) error {
	m, err := s.StartMatch(accessContext(c), MatchAccessFrom(c).Match.MatchID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

func (s *MatchService) EndMatchEndpoint(c *fiber.Ctx) error {
	m, err := s.EndMatch(accessContext(c), MatchAccessFrom(c).Match.MatchID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(m.Snapshot())
}

func (s *MatchService) DeleteMatchEndpoint(c *fiber.Ctx) error {
	id := MatchAccessFrom(c).Match.MatchID
	if err := s.DeleteMatch(accessContext(c), id); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "match deleted", "matchId": id})
}
