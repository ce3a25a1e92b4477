package participant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/storage/database/inmem"
	"github.com/reelbingo/promo/tests"
)

func setup() (participant.Service, participant.Repository, *inmemdb.DB) {
	db := inmemdb.Open()
	repo := inmemdb.NewParticipantRepository(db)
	return participant.NewService(db, repo, inmemdb.NewProgressRepository(db)), repo, db
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()
	svc, _, db := setup()
	progRepo := inmemdb.NewProgressRepository(db)

	p, err := svc.Signup(ctx, participant.NewParticipant{Email: "Jane@Test.test", Password: "Passw0rd!", PasswordConfirm: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "jane@test.test", p.Email)
	assert.False(t, p.IsManager)
	assert.NoError(t, p.CheckPassword("Passw0rd!"))

	// the empty board comes with the account
	prog, err := progRepo.GetProgress(ctx, p.ID, core.NoLock)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.Squares.Count())

	_, err = svc.Signup(ctx, participant.NewParticipant{Email: "jane@test.test", Password: "Passw0rd!", PasswordConfirm: "Passw0rd!"})
	require.True(t, core.IsValidation(err), "got %v", err)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

func TestService_lookups(t *testing.T) {
	ctx := context.Background()
	svc, repo, db := setup()
	p := testutil.CreateParticipant(t, repo, inmemdb.NewProgressRepository(db), "jane@test.test", "Passw0rd!")
	mgr := testutil.CreateManager(t, repo, "mgr@test.test", "Passw0rd!")

	got, err := svc.FindByEmail(ctx, " JANE@test.test ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, participant.Summary{ID: p.ID, Email: p.Email}, got.Summary())

	_, err = svc.FindByEmail(ctx, "mgr@test.test")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.GetByEmail(ctx, "mgr@test.test")
	assert.NoError(t, err)

	tests := []struct {
		name    string
		id      string
		want    bool
		wantErr bool
	}{
		{name: "manager", id: mgr.ID, want: true},
		{name: "participant", id: p.ID, want: false},
		{name: "anonymous", id: "", want: false},
		{name: "unknown", id: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.IsManager(ctx, tt.id)
			if tt.wantErr {
				assert.True(t, core.IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	email, err := svc.Email(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@test.test", email)

	p, err = svc.SetLastLogin(ctx, p)
	require.NoError(t, err)
	assert.True(t, p.LastLogin.Valid)
}

func TestService_AddManager(t *testing.T) {
	ctx := context.Background()
	svc, repo, db := setup()
	p := testutil.CreateParticipant(t, repo, inmemdb.NewProgressRepository(db), "jane@test.test", "Passw0rd!")

	mgr, err := svc.AddManager(ctx, "Boss@Test.test", "S3cret!pass")
	require.NoError(t, err)
	assert.True(t, mgr.IsManager)
	assert.Equal(t, "boss@test.test", mgr.Email)
	assert.NoError(t, mgr.CheckPassword("S3cret!pass"))

	promoted, err := svc.AddManager(ctx, "jane@test.test", "N3w!password")
	require.NoError(t, err)
	assert.Equal(t, p.ID, promoted.ID)
	assert.True(t, promoted.IsManager)
	assert.NoError(t, promoted.CheckPassword("N3w!password"))
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup()
	testutil.CreateManager(t, repo, "mgr@test.test", "Passw0rd!")

	require.NoError(t, svc.ResetPassword(ctx, "mgr@test.test", "An0ther!pass"))
	got, err := svc.GetByEmail(ctx, "mgr@test.test")
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("An0ther!pass"))
	assert.Error(t, got.CheckPassword("Passw0rd!"))

	assert.True(t, core.IsNotFound(svc.ResetPassword(ctx, "nobody@test.test", "An0ther!pass")))
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo, db := setup()
	p := testutil.CreateParticipant(t, repo, inmemdb.NewProgressRepository(db), "jane@test.test", "Passw0rd!")

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr bool
	}{
		{name: "ok", email: "Jane@test.test", pwd: "Passw0rd!"},
		{name: "bad password", email: "jane@test.test", pwd: "passw0rd!", wantErr: true},
		{name: "unknown email", email: "john@test.test", pwd: "Passw0rd!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr {
				require.True(t, core.IsValidation(err), "got %v", err)
				assert.EqualError(t, err, "invalid credentials")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
			assert.True(t, got.LastLogin.Valid)
		})
	}
}
