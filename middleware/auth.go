package middleware

import (
	"context"
	"strings"

	"cue-club-system/models"
	"cue-club-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// MatchLoader fetches the match named in the route.
type MatchLoader interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
}

// ManagerVerifier resolves a bearer access token to a manager.
type ManagerVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.Manager, error)
}

// SessionToken reads the caller's match capability from the X-Session-Token
// header, the JSON body field sessionToken, or the sessionToken query param.
func SessionToken(c *fiber.Ctx) string {
	if t := strings.TrimSpace(c.Get("X-Session-Token")); t != "" {
		return t
	}
	if len(c.Body()) > 0 && strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		var body struct {
			SessionToken string `json:"sessionToken"`
		}
		if err := c.BodyParser(&body); err == nil && body.SessionToken != "" {
			return strings.TrimSpace(body.SessionToken)
		}
	}
	return strings.TrimSpace(c.Query("sessionToken"))
}

func forbidden(c *fiber.Ctx, msg string) error {
	log.Debug().Str("path", c.Path()).Str("ip", c.IP()).Msg("❌ [AUTH] " + msg)
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": msg})
}

func matchID(c *fiber.Ctx) string {
	if id := c.Params("id"); id != "" {
		return id
	}
	return c.Params("matchId")
}

func loadMatch(c *fiber.Ctx, matches MatchLoader) (*models.Match, error) {
	return matches.GetMatch(c.UserContext(), matchID(c))
}

// RequireManager admits only callers with a valid manager access token.
func RequireManager(managers ManagerVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mgr, err := managers.VerifyToken(c.UserContext(), services.BearerToken(c))
		if err != nil {
			return services.RespondError(c, err)
		}
		services.SetManager(c, mgr)
		return c.Next()
	}
}

// OptionalManager attaches the manager when a bearer token is sent. A token
// that does not verify is rejected rather than silently ignored.
func OptionalManager(managers ManagerVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := services.BearerToken(c)
		if token == "" {
			return c.Next()
		}
		mgr, err := managers.VerifyToken(c.UserContext(), token)
		if err != nil {
			return services.RespondError(c, err)
		}
		services.SetManager(c, mgr)
		return c.Next()
	}
}

// RequireRole admits a caller whose session token belongs to a member of
// the match holding one of roles.
func RequireRole(matches MatchLoader, roles ...models.MemberRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := loadMatch(c, matches)
		if err != nil {
			return services.RespondError(c, err)
		}
		token := SessionToken(c)
		ref, ok := m.FindByToken(token)
		if !ok {
			return forbidden(c, "invalid session token")
		}
		allowed := false
		for _, r := range roles {
			if ref.Member.Role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			return forbidden(c, "role "+string(ref.Member.Role)+" may not perform this action")
		}
		services.SetMatchAccess(c, &services.MatchAccess{
			Match:  m,
			Via:    services.AccessSession,
			Member: ref.Member,
			Team:   ref.Team,
			Token:  token,
		})
		return c.Next()
	}
}

func RequireHostRole(matches MatchLoader) fiber.Handler {
	return RequireRole(matches, models.RoleHost)
}

func RequireParticipantRole(matches MatchLoader) fiber.Handler {
	return RequireRole(matches, models.RoleParticipant)
}

// RequireMember admits any member of the match, host or participant.
func RequireMember(matches MatchLoader) fiber.Handler {
	return RequireRole(matches, models.RoleHost, models.RoleParticipant)
}

// AllowManagerOrHost admits a manager of the match's club, or the host.
func AllowManagerOrHost(matches MatchLoader, managers ManagerVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := loadMatch(c, matches)
		if err != nil {
			return services.RespondError(c, err)
		}
		if bearer := services.BearerToken(c); bearer != "" {
			mgr, err := managers.VerifyToken(c.UserContext(), bearer)
			if err == nil && mgr.ClubID == m.ClubID {
				services.SetManager(c, mgr)
				services.SetMatchAccess(c, &services.MatchAccess{Match: m, Via: services.AccessManager, Manager: mgr})
				return c.Next()
			}
		}
		token := SessionToken(c)
		ref, ok := m.FindByToken(token)
		if !ok || !ref.Member.IsHost() {
			return forbidden(c, "only the host or a club manager may do this")
		}
		services.SetMatchAccess(c, &services.MatchAccess{
			Match:  m,
			Via:    services.AccessSession,
			Member: ref.Member,
			Team:   ref.Team,
			Token:  token,
		})
		return c.Next()
	}
}

// CreatorActor is how a caller names itself on creator-only routes.
type CreatorActor struct {
	MembershipID string `json:"actorMembershipId"`
	GuestToken   string `json:"actorGuestToken"`
}

// creatorActor reads actorMembershipId and actorGuestToken from the JSON body
// or the query string. A session token also counts as a guest token.
func creatorActor(c *fiber.Ctx) CreatorActor {
	var a CreatorActor
	if len(c.Body()) > 0 && strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		_ = c.BodyParser(&a)
	}
	if a.MembershipID == "" {
		a.MembershipID = c.Query("actorMembershipId")
	}
	if a.GuestToken == "" {
		a.GuestToken = c.Query("actorGuestToken")
	}
	if a.GuestToken == "" {
		a.GuestToken = SessionToken(c)
	}
	a.MembershipID = strings.TrimSpace(a.MembershipID)
	a.GuestToken = strings.TrimSpace(a.GuestToken)
	return a
}

// RequireMatchCreator admits whoever created the match: actorGuestToken must
// equal the creator guest token, or actorMembershipId the creating membership.
func RequireMatchCreator(matches MatchLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := loadMatch(c, matches)
		if err != nil {
			return services.RespondError(c, err)
		}
		actor := creatorActor(c)
		if m.IsCreatorGuestToken(actor.GuestToken) {
			services.SetMatchAccess(c, &services.MatchAccess{Match: m, Via: services.AccessCreator, Token: actor.GuestToken})
			return c.Next()
		}
		if m.CreatedByMembershipID == nil {
			return forbidden(c, "only the match creator may do this")
		}
		creatorID := *m.CreatedByMembershipID
		if actor.MembershipID != "" && actor.MembershipID == creatorID {
			access := &services.MatchAccess{Match: m, Via: services.AccessCreator}
			if ref, ok := m.FindMember(models.Registered{MembershipID: creatorID}.Key()); ok {
				access.Member, access.Team = ref.Member, ref.Team
			}
			services.SetMatchAccess(c, access)
			return c.Next()
		}
		// A session token held by the creating membership also counts.
		if token := SessionToken(c); token != "" {
			if ref, ok := m.FindByToken(token); ok && ref.Member.MembershipID == creatorID {
				services.SetMatchAccess(c, &services.MatchAccess{
					Match: m, Via: services.AccessCreator, Member: ref.Member, Team: ref.Team, Token: token,
				})
				return c.Next()
			}
		}
		return forbidden(c, "only the match creator may do this")
	}
}
