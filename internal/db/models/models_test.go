package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}, &Project{}, &Membership{}, &Snippet{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *User {
	t.Helper()
	user, err := NewUser(username, username+"@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, NewUserStore(db).Create(user))
	return user
}

func seedProject(t *testing.T, db *gorm.DB, owner *User, code string) *Project {
	t.Helper()
	project := &Project{Code: code, Name: code, OwnerID: owner.ID, DefaultBranch: "master"}
	require.NoError(t, NewProjectStore(db).Create(project))
	return project
}

func TestNewUserHashesPassword(t *testing.T) {
	user, err := NewUser("dexter", "dexter@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestUserStoreLookups(t *testing.T) {
	db := newTestDB(t)
	store := NewUserStore(db)
	user := seedUser(t, db, "dexter")

	byID, err := store.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "dexter", byID.Username)

	byEmail, err := store.GetByEmail("dexter@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.GetByUsername("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserStoreGetByIDsSkipsUnknown(t *testing.T) {
	db := newTestDB(t)
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")

	users, err := NewUserStore(db).GetByIDs([]uint{a.ID, b.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Project":     "my-project",
		"  Spaced  Out ": "spaced-out",
		"Already-fine":   "already-fine",
		"C++ Toolkit!":   "c-toolkit",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input), "Slugify(%q)", input)
	}
}

func TestNextAvailableCode(t *testing.T) {
	db := newTestDB(t)
	store := NewProjectStore(db)
	owner := seedUser(t, db, "owner")

	code, err := store.NextAvailableCode("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", code)

	seedProject(t, db, owner, "demo")
	code, err = store.NextAvailableCode("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo-2", code)

	seedProject(t, db, owner, "demo-2")
	code, err = store.NextAvailableCode("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo-3", code)
}

func TestProjectStoreListAccessible(t *testing.T) {
	db := newTestDB(t)
	store := NewProjectStore(db)
	owner := seedUser(t, db, "owner")
	member := seedUser(t, db, "member")
	outsider := seedUser(t, db, "outsider")

	owned := seedProject(t, db, owner, "owned")
	joined := seedProject(t, db, outsider, "joined")
	seedProject(t, db, outsider, "private")

	_, err := NewMembershipStore(db).AddMissing(joined.ID, []uint{member.ID}, DeveloperAccess)
	require.NoError(t, err)
	_, err = NewMembershipStore(db).AddMissing(owned.ID, []uint{member.ID}, GuestAccess)
	require.NoError(t, err)

	projects, err := store.ListAccessible(member.ID)
	require.NoError(t, err)
	codes := make([]string, 0, len(projects))
	for _, p := range projects {
		codes = append(codes, p.Code)
	}
	assert.ElementsMatch(t, []string{"owned", "joined"}, codes)

	projects, err = store.ListAccessible(owner.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "owned", projects[0].Code)
}

func TestProjectStoreDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	store := NewProjectStore(db)
	owner := seedUser(t, db, "owner")
	member := seedUser(t, db, "member")
	project := seedProject(t, db, owner, "demo")

	_, err := NewMembershipStore(db).AddMissing(project.ID, []uint{member.ID}, DeveloperAccess)
	require.NoError(t, err)
	require.NoError(t, NewSnippetStore(db).Create(&Snippet{
		ProjectID: project.ID, AuthorID: owner.ID, Title: "t", FileName: "f", Content: "c",
	}))

	require.NoError(t, store.Delete(project.ID))

	_, err = store.GetByID(project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	members, err := NewMembershipStore(db).ListByProject(project.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	n, err := NewSnippetStore(db).CountByProject(project.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAccessLevelOrdering(t *testing.T) {
	assert.True(t, AccessAtLeast(OwnerAccess, MasterAccess))
	assert.True(t, AccessAtLeast(DeveloperAccess, DeveloperAccess))
	assert.False(t, AccessAtLeast(ReporterAccess, DeveloperAccess))
	assert.False(t, AccessAtLeast(GuestAccess, MasterAccess))
}

func TestIsValidAccessLevel(t *testing.T) {
	for _, level := range []string{GuestAccess, ReporterAccess, DeveloperAccess, MasterAccess} {
		assert.True(t, IsValidAccessLevel(level), level)
	}
	// owner is implicit, never assignable
	assert.False(t, IsValidAccessLevel(OwnerAccess))
	assert.False(t, IsValidAccessLevel("admin"))
	assert.False(t, IsValidAccessLevel(""))
}

func TestAddMissingSkipsExistingRows(t *testing.T) {
	db := newTestDB(t)
	store := NewMembershipStore(db)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, "demo")
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")

	created, err := store.AddMissing(project.ID, []uint{a.ID}, MasterAccess)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// a already has a row; only b is created, and a keeps master
	created, err = store.AddMissing(project.ID, []uint{a.ID, b.ID}, GuestAccess)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	m, err := store.GetByUserAndProject(a.ID, project.ID)
	require.NoError(t, err)
	assert.Equal(t, MasterAccess, m.AccessLevel)
}

func TestSetLevelSkipsNonMembers(t *testing.T) {
	db := newTestDB(t)
	store := NewMembershipStore(db)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, "demo")
	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")

	_, err := store.AddMissing(project.ID, []uint{a.ID}, GuestAccess)
	require.NoError(t, err)

	changed, err := store.SetLevel(project.ID, []uint{a.ID, b.ID}, DeveloperAccess)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	m, err := store.GetByUserAndProject(a.ID, project.ID)
	require.NoError(t, err)
	assert.Equal(t, DeveloperAccess, m.AccessLevel)
}

func TestRemoveByIDsIgnoresUnknownAndForeign(t *testing.T) {
	db := newTestDB(t)
	store := NewMembershipStore(db)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, "demo")
	other := seedProject(t, db, owner, "other")
	a := seedUser(t, db, "a")

	_, err := store.AddMissing(project.ID, []uint{a.ID}, GuestAccess)
	require.NoError(t, err)
	_, err = store.AddMissing(other.ID, []uint{a.ID}, GuestAccess)
	require.NoError(t, err)

	m, err := store.GetByUserAndProject(a.ID, project.ID)
	require.NoError(t, err)
	foreign, err := store.GetByUserAndProject(a.ID, other.ID)
	require.NoError(t, err)

	// unknown ids and ids belonging to another project are no-ops
	removed, err := store.RemoveByIDs(project.ID, []uint{m.ID, foreign.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetByUserAndProject(a.ID, other.ID)
	assert.NoError(t, err)
}

func TestAccessLevelForOwnerIsImplicit(t *testing.T) {
	db := newTestDB(t)
	store := NewMembershipStore(db)
	owner := seedUser(t, db, "owner")
	member := seedUser(t, db, "member")
	outsider := seedUser(t, db, "outsider")
	project := seedProject(t, db, owner, "demo")

	_, err := store.AddMissing(project.ID, []uint{member.ID}, ReporterAccess)
	require.NoError(t, err)

	level, ok, err := store.AccessLevelFor(owner, project)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, OwnerAccess, level)

	level, ok, err = store.AccessLevelFor(member, project)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ReporterAccess, level)

	_, ok, err = store.AccessLevelFor(outsider, project)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.AccessLevelFor(nil, project)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnippetStoreScopedToProject(t *testing.T) {
	db := newTestDB(t)
	store := NewSnippetStore(db)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, "demo")
	other := seedProject(t, db, owner, "other")

	snippet := &Snippet{ProjectID: project.ID, AuthorID: owner.ID, Title: "t", FileName: "f.rb", Content: "puts 1"}
	require.NoError(t, store.Create(snippet))

	got, err := store.GetByID(project.ID, snippet.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	// the same id under another project does not resolve
	_, err = store.GetByID(other.ID, snippet.ID)
	assert.ErrorIs(t, err, ErrSnippetNotFound)

	err = store.Delete(other.ID, snippet.ID)
	assert.ErrorIs(t, err, ErrSnippetNotFound)

	require.NoError(t, store.Delete(project.ID, snippet.ID))
	err = store.Delete(project.ID, snippet.ID)
	assert.ErrorIs(t, err, ErrSnippetNotFound)
}

func TestSnippetListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	store := NewSnippetStore(db)
	owner := seedUser(t, db, "owner")
	project := seedProject(t, db, owner, "demo")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Create(&Snippet{
			ProjectID: project.ID, AuthorID: owner.ID,
			Title: fmt.Sprintf("s%d", i), FileName: "f", Content: "c",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	snippets, err := store.ListByProject(project.ID)
	require.NoError(t, err)
	require.Len(t, snippets, 3)
	assert.Equal(t, "s3", snippets[0].Title)
	assert.Equal(t, "s1", snippets[2].Title)
}

func TestMembershipUniquePerUserProject(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "owner")
	a := seedUser(t, db, "a")
	project := seedProject(t, db, owner, "demo")

	require.NoError(t, db.Create(&Membership{UserID: a.ID, ProjectID: project.ID, AccessLevel: GuestAccess}).Error)
	err := db.Create(&Membership{UserID: a.ID, ProjectID: project.ID, AccessLevel: MasterAccess}).Error
	assert.Error(t, err)
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
