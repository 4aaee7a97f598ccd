package services

import (
	"context"

	"cue-club-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"
)

type AccessVia string

const (
	AccessManager AccessVia = "manager"
	AccessSession AccessVia = "session"
	AccessCreator AccessVia = "creator"
)

// MatchAccess is what the authorization middleware established for a request.
// It is stored once in Locals and read by the endpoints.
type MatchAccess struct {
	Match   *models.Match
	Via     AccessVia
	Manager *models.Manager
	Member  *models.MatchTeamMember
	Team    int
	Token   string
}

func (a *MatchAccess) ByManager() bool { return a != nil && a.Via == AccessManager }

const (
	matchAccessKey = "match_access"
	managerKey     = "manager"
)

func SetMatchAccess(c *fiber.Ctx, a *MatchAccess) { c.Locals(matchAccessKey, a) }

func MatchAccessFrom(c *fiber.Ctx) *MatchAccess {
	a, _ := c.Locals(matchAccessKey).(*MatchAccess)
	return a
}

func SetManager(c *fiber.Ctx, m *models.Manager) { c.Locals(managerKey, m) }

// ManagerFrom returns the authenticated manager, or nil for anonymous callers.
func ManagerFrom(c *fiber.Ctx) *models.Manager {
	m, _ := c.Locals(managerKey).(*models.Manager)
	return m
}

type accessCtxKey struct{}

// accessContext carries the request's MatchAccess into the service so the
// locked re-read of the match can confirm it.
func accessContext(c *fiber.Ctx) context.Context {
	if a := MatchAccessFrom(c); a != nil {
		return withMatchAccess(c.UserContext(), a)
	}
	return c.UserContext()
}

func withMatchAccess(ctx context.Context, a *MatchAccess) context.Context {
	return context.WithValue(ctx, accessCtxKey{}, a)
}

// recheckAccess confirms a session caller still holds the role it was
// admitted with, against the match read under lock.
func recheckAccess(ctx context.Context, m *models.Match) error {
	a, _ := ctx.Value(accessCtxKey{}).(*MatchAccess)
	if a == nil || a.Via != AccessSession || a.Member == nil {
		return nil
	}
	ref, ok := m.FindByToken(a.Token)
	if !ok {
		return eris.Wrap(ErrForbidden, "session token is no longer valid for this match")
	}
	if ref.Member.Role != a.Member.Role {
		return eris.Wrapf(ErrForbidden, "role changed from %s to %s", a.Member.Role, ref.Member.Role)
	}
	return nil
}
