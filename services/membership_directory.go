package services

import (
	"context"
	"errors"
	"strings"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// MembershipDirectory resolves people against the brand's registered members.
// Lookups return (nil, nil) when nothing matches.
type MembershipDirectory interface {
	ByID(ctx context.Context, id string) (*models.Membership, error)
	ByPhone(ctx context.Context, brandID, phone string) (*models.Membership, error)
	ByFullName(ctx context.Context, brandID, name string) (*models.Membership, error)
}

type gormDirectory struct {
	db *gorm.DB
}

func NewMembershipDirectory(db *gorm.DB) MembershipDirectory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) first(ctx context.Context, query string, args ...any) (*models.Membership, error) {
	var m models.Membership
	err := d.db.WithContext(ctx).Where(query, args...).Order("created_at").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "membership lookup failed")
	}
	return &m, nil
}

func (d *gormDirectory) ByID(ctx context.Context, id string) (*models.Membership, error) {
	return d.first(ctx, "id = ?", id)
}

func (d *gormDirectory) ByPhone(ctx context.Context, brandID, phone string) (*models.Membership, error) {
	phone = utils.NormalizePhone(phone)
	if phone == "" {
		return nil, nil
	}
	return d.first(ctx, "brand_id = ? AND phone_number = ?", brandID, phone)
}

func (d *gormDirectory) ByFullName(ctx context.Context, brandID, name string) (*models.Membership, error) {
	key := utils.NameKey(name)
	if key == "" {
		return nil, nil
	}
	return d.first(ctx, "brand_id = ? AND name_key = ?", brandID, key)
}

// PlayerInput is how clients describe a player: by membership id, by phone
// number, or by a free-text guest name. The role field, if any, is ignored.
type PlayerInput struct {
	MembershipID   string `json:"membershipId"`
	MembershipName string `json:"membershipName"`
	PhoneNumber    string `json:"phoneNumber"`
	GuestName      string `json:"guestName"`
}

func (p PlayerInput) empty() bool {
	return strings.TrimSpace(p.MembershipID) == "" &&
		strings.TrimSpace(p.PhoneNumber) == "" &&
		strings.TrimSpace(p.GuestName) == ""
}

// resolver turns PlayerInput into identities within one brand.
type resolver struct {
	dir     MembershipDirectory
	brandID string
	// matchNames lets a guest name resolve to a member with the same full
	// name, or by phone when the name is a phone number.
	matchNames bool
}

func (r resolver) registered(m *models.Membership) (models.Identity, error) {
	if m.BrandID != r.brandID {
		return nil, eris.Wrapf(ErrBrandMismatch, "membership %s", m.ID)
	}
	if m.IsBanned {
		return nil, eris.Wrapf(ErrForbidden, "membership %s is banned", m.ID)
	}
	return models.Registered{MembershipID: m.ID, Name: m.FullName}, nil
}

func (r resolver) guest(name string) (models.Identity, error) {
	g, ok := models.NewGuest(name)
	if !ok {
		return nil, eris.Wrapf(ErrInvalidInput, "guest name %q is empty", name)
	}
	return g, nil
}

func (r resolver) resolve(ctx context.Context, in PlayerInput) (models.Identity, error) {
	if in.empty() {
		return nil, eris.Wrap(ErrInvalidInput, "player needs a membershipId, phoneNumber or guestName")
	}

	if id := strings.TrimSpace(in.MembershipID); id != "" {
		m, err := r.dir.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, eris.Wrapf(ErrNotFound, "membership %s", id)
		}
		return r.registered(m)
	}

	if phone := strings.TrimSpace(in.PhoneNumber); phone != "" {
		m, err := r.dir.ByPhone(ctx, r.brandID, phone)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return r.registered(m)
		}
		if strings.TrimSpace(in.GuestName) != "" {
			return r.guest(in.GuestName)
		}
		return r.guest(phone)
	}

	name := in.GuestName
	if r.matchNames {
		lookup := r.dir.ByFullName
		if utils.LooksLikePhone(name) {
			lookup = r.dir.ByPhone
		}
		m, err := lookup(ctx, r.brandID, name)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return r.registered(m)
		}
	}
	return r.guest(name)
}
