package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/storefront/api"
	"github.com/your-org/storefront/internal/storefront/notice"
)

type fakeAPI struct {
	current   *api.User
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeAPI) CurrentUser(context.Context) (*api.User, error) { return f.current, nil }

func (f *fakeAPI) Login(_ context.Context, email, _ string) (*api.User, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.User{ID: 1, Username: "alice", Email: email}, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeAPI) Register(context.Context, api.RegisterRequest) error { return nil }

func newContext(f *fakeAPI) (*Context, *notice.Board) {
	board := notice.NewBoard()
	return NewContext(f, board, logger.Discard()), board
}

func TestRefreshAnonymousIsNotAnError(t *testing.T) {
	s, _ := newContext(&fakeAPI{})

	require.NoError(t, s.Refresh(context.Background()))
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.IsAdmin())
}

func TestLoginPublishesIdentity(t *testing.T) {
	s, _ := newContext(&fakeAPI{})
	changes, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))

	u, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", u.Username)

	change := <-changes
	require.NotNil(t, change.User)
	assert.Equal(t, "alice@example.com", change.User.Email)
}

func TestLoginFailureKeepsIdentityAndShowsServerMessage(t *testing.T) {
	f := &fakeAPI{}
	s, board := newContext(f)
	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))

	f.loginErr = &api.Error{Status: 401, Message: "Invalid credentials"}
	assert.Error(t, s.Login(context.Background(), "bob@example.com", "bad"))

	u, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", u.Email)

	notices := board.List()
	assert.Equal(t, notice.Notice{Kind: notice.KindDanger, Text: "Invalid credentials"}, notices[len(notices)-1])
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	f := &fakeAPI{logoutErr: errors.New("connection refused")}
	s, _ := newContext(f)
	require.NoError(t, s.Login(context.Background(), "alice@example.com", "pw"))

	changes, cancel := s.Subscribe()
	defer cancel()

	s.Logout(context.Background())

	assert.Equal(t, 1, f.logouts)
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Nil(t, (<-changes).User)
}

func TestCurrentReturnsACopy(t *testing.T) {
	s, _ := newContext(&fakeAPI{current: &api.User{Username: "alice", IsAdmin: true}})
	require.NoError(t, s.Refresh(context.Background()))

	u, _ := s.Current()
	u.IsAdmin = false
	assert.True(t, s.IsAdmin())
}
