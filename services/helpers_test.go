package services

import (
	"path/filepath"
	"sync"
	"testing"

	"cue-club-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type notification struct {
	event   string
	matchID string
	match   *models.Match
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (r *recordingNotifier) add(n notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *recordingNotifier) MatchCreated(m *models.Match) {
	r.add(notification{event: "match_created", matchID: m.MatchID, match: m})
}

func (r *recordingNotifier) MatchUpdated(m *models.Match) {
	r.add(notification{event: "match_updated", matchID: m.MatchID, match: m})
}

func (r *recordingNotifier) MatchEnded(m *models.Match) {
	r.add(notification{event: "match_ended", matchID: m.MatchID, match: m})
}

func (r *recordingNotifier) MatchDeleted(id string) {
	r.add(notification{event: "match_deleted", matchID: id})
}

func (r *recordingNotifier) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.event
	}
	return out
}

func (r *recordingNotifier) last() notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	db      *gorm.DB
	svc     *MatchService
	auth    *ManagerAuthService
	notes   *recordingNotifier
	brand   models.Brand
	club    models.Club
	table   models.Table
	table2  models.Table
	alice   models.Membership
	bob     models.Membership
	carol   models.Membership
	banned  models.Membership
	foreign models.Membership
	manager *models.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{db: db, notes: &recordingNotifier{}}
	f.svc = NewMatchService(db, f.notes)
	f.auth = NewManagerAuthService(db, 0)

	f.brand = models.Brand{ID: uuid.NewString(), Name: "Cue Masters"}
	other := models.Brand{ID: uuid.NewString(), Name: "Other Brand"}
	f.club = models.Club{ID: uuid.NewString(), BrandID: f.brand.ID, Name: "Downtown Hall"}
	f.table = models.Table{ID: uuid.NewString(), ClubID: f.club.ID, Name: "T1", Status: models.TableEmpty}
	f.table2 = models.Table{ID: uuid.NewString(), ClubID: f.club.ID, Name: "T2", Status: models.TableEmpty}
	f.alice = models.Membership{ID: uuid.NewString(), BrandID: f.brand.ID, FullName: "Alice Nguyen", PhoneNumber: "0901 111 111"}
	f.bob = models.Membership{ID: uuid.NewString(), BrandID: f.brand.ID, FullName: "Bob Tran", PhoneNumber: "0902-222-222"}
	f.carol = models.Membership{ID: uuid.NewString(), BrandID: f.brand.ID, FullName: "Carol Lê", PhoneNumber: "0903333333"}
	f.banned = models.Membership{ID: uuid.NewString(), BrandID: f.brand.ID, FullName: "Dan Banned", PhoneNumber: "0904444444", IsBanned: true}
	f.foreign = models.Membership{ID: uuid.NewString(), BrandID: other.ID, FullName: "Eve Elsewhere", PhoneNumber: "0905555555"}

	for _, rec := range []any{&f.brand, &other, &f.club, &f.table, &f.table2, &f.alice, &f.bob, &f.carol, &f.banned, &f.foreign} {
		require.NoError(t, db.Create(rec).Error)
	}
	mgr, err := f.auth.RegisterManager(t.Context(), f.club.ID, "boss@club.test", "correct horse battery", "Boss")
	require.NoError(t, err)
	f.manager = mgr
	return f
}

func (f *fixture) tableStatus(t *testing.T, id string) models.TableStatus {
	t.Helper()
	var tbl models.Table
	require.NoError(t, f.db.First(&tbl, "id = ?", id).Error)
	return tbl.Status
}

func guests(names ...string) []PlayerInput {
	out := make([]PlayerInput, len(names))
	for i, n := range names {
		out[i] = PlayerInput{GuestName: n}
	}
	return out
}

func twoTeams(a, b []PlayerInput) []TeamInput {
	return []TeamInput{{Members: a}, {Members: b}}
}

// createGuestMatch creates an anonymous match: first guest becomes host.
func (f *fixture) createGuestMatch(t *testing.T, a, b []PlayerInput) *CreateMatchResult {
	t.Helper()
	res, err := f.svc.CreateMatch(t.Context(), CreateMatchRequest{
		TableID:  f.table.ID,
		GameType: models.GameTypePool,
		Teams:    twoTeams(a, b),
	}, nil)
	require.NoError(t, err)
	return res
}
