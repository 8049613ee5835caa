package main

import (
	"database/sql"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return newApp(newTestDB(t), logger)
}

func validSignup() signupInput {
	return signupInput{
		Username:  "test",
		Email:     "test@example.com",
		Password1: "examplepassword",
		Password2: "examplepassword",
	}
}

func TestRegisterSuccess(t *testing.T) {
	app := newTestApp(t)

	session, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)
	require.NotNil(t, session)

	// Registration leaves the client authenticated.
	account, err := app.db.AccountBySession(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "test", account.Username)
	assert.Equal(t, "test@example.com", account.Email)

	count, err := app.db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterStoresHashNotPlaintext(t *testing.T) {
	app := newTestApp(t)

	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	account, err := app.db.AccountByUsername("test")
	require.NoError(t, err)
	assert.NotEqual(t, "examplepassword", account.PwHash)
	assert.True(t, checkPassword(account.PwHash, "examplepassword"))
}

func TestRegisterValidationFailureCreatesNothing(t *testing.T) {
	app := newTestApp(t)

	in := validSignup()
	in.Password2 = "different"
	session, errs, err := app.Register(in)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.True(t, errs.has("password2", ErrMismatch))

	count, err := app.db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	app := newTestApp(t)

	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	in := validSignup()
	in.Email = "other@example.com"
	session, errs, err := app.Register(in)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.True(t, errs.has("username", ErrDuplicate))

	count, err := app.db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterPasswordSimilarToUsername(t *testing.T) {
	app := newTestApp(t)

	session, errs, err := app.Register(signupInput{
		Username:  "cjigsefg",
		Email:     "test@example.com",
		Password1: "cjigsefg",
		Password2: "cjigsefg",
	})
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.True(t, errs.has("password2", ErrTooSimilar))

	count, err := app.db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLoginSuccess(t *testing.T) {
	app := newTestApp(t)
	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	session, errs, err := app.Login("test", "examplepassword")
	require.NoError(t, err)
	require.Empty(t, errs)
	require.NotNil(t, session)

	account, err := app.db.AccountBySession(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "test", account.Username)

	// No new account came out of logging in.
	count, err := app.db.CountAccounts()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoginDoesNotRevealWhichFieldWasWrong(t *testing.T) {
	app := newTestApp(t)
	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	session, wrongPassword, err := app.Login("test", "wrongpassword")
	require.NoError(t, err)
	assert.Nil(t, session)
	require.True(t, wrongPassword.has(formWide, ErrInvalidCredentials))

	session, unknownUser, err := app.Login("aaaaa", "examplepassword")
	require.NoError(t, err)
	assert.Nil(t, session)
	require.True(t, unknownUser.has(formWide, ErrInvalidCredentials))

	assert.Equal(t, wrongPassword.messagesFor(formWide), unknownUser.messagesFor(formWide))
}

func TestLoginEmptyPassword(t *testing.T) {
	app := newTestApp(t)
	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	session, errs, err := app.Login("test", "")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.True(t, errs.has("password", ErrRequired))
	assert.False(t, errs.has(formWide, ErrInvalidCredentials))
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	session, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)

	require.NoError(t, app.Logout(session.Token))

	_, err = app.db.AccountBySession(session.Token)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestFollowFlow(t *testing.T) {
	app := newTestApp(t)

	fooIn := validSignup()
	fooIn.Username = "foo"
	_, errs, err := app.Register(fooIn)
	require.NoError(t, err)
	require.Empty(t, errs)
	foo, err := app.db.AccountByUsername("foo")
	require.NoError(t, err)

	barIn := validSignup()
	barIn.Username = "bar"
	_, errs, err = app.Register(barIn)
	require.NoError(t, err)
	require.Empty(t, errs)
	bar, err := app.db.AccountByUsername("bar")
	require.NoError(t, err)

	require.NoError(t, app.FollowAccount(foo, "bar"))
	following, err := app.db.IsFollowing(foo.ID, bar.ID)
	require.NoError(t, err)
	assert.True(t, following)

	assert.ErrorIs(t, app.FollowAccount(foo, "foo"), ErrSelfFollow)
	assert.ErrorIs(t, app.FollowAccount(foo, "missing"), sql.ErrNoRows)

	require.NoError(t, app.UnfollowAccount(foo, "bar"))
	following, err = app.db.IsFollowing(foo.ID, bar.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestUpdateEmailFlow(t *testing.T) {
	app := newTestApp(t)
	_, errs, err := app.Register(validSignup())
	require.NoError(t, err)
	require.Empty(t, errs)
	account, err := app.db.AccountByUsername("test")
	require.NoError(t, err)

	fieldErrs, err := app.UpdateEmail(account, "broken")
	require.NoError(t, err)
	assert.True(t, fieldErrs.has("email", ErrInvalidFormat))

	fieldErrs, err = app.UpdateEmail(account, "new@example.com")
	require.NoError(t, err)
	assert.Empty(t, fieldErrs)

	updated, err := app.db.AccountByUsername("test")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
}
