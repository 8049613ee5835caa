package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrSelfFollow is returned when an account tries to follow or unfollow
// itself.
var ErrSelfFollow = errors.New("cannot follow yourself")

// App runs the account flows against the store. Flows never touch HTTP;
// handlers pass raw form values in and map the results to responses.
type App struct {
	db  *DB
	log *logrus.Logger
}

func newApp(db *DB, log *logrus.Logger) *App {
	return &App{db: db, log: log}
}

// Register validates raw signup input and, on success, persists the account,
// re-authenticates it and opens a session. The returned fieldErrors is
// non-empty exactly when the form should be redisplayed; the error return is
// reserved for infrastructure failures.
func (app *App) Register(in signupInput) (*Session, fieldErrors, error) {
	taken := false
	if in.Username != "" {
		if _, err := app.db.AccountByUsername(in.Username); err == nil {
			taken = true
		}
	}
	if errs := validateSignup(in, taken); len(errs) > 0 {
		return nil, errs, nil
	}

	// The hash is computed here and nowhere earlier; plaintext never
	// reaches the store.
	pwHash, err := hashPassword(in.Password1)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	if _, err := app.db.InsertAccount(in.Username, in.Email, pwHash); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			// Lost an insert race to another writer. Same outcome as
			// the pre-insert check.
			errs := fieldErrors{}
			errs.add("username", ErrDuplicate)
			return nil, errs, nil
		}
		return nil, nil, fmt.Errorf("insert account: %w", err)
	}

	// Authenticate against the stored row rather than trusting the value
	// just inserted, so the session can only derive from durable state.
	session, errs, err := app.Login(in.Username, in.Password1)
	if err != nil {
		return nil, nil, err
	}
	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("account %q failed authentication right after insert", in.Username)
	}
	app.log.WithField("username", in.Username).Info("account registered")
	return session, nil, nil
}

// Login verifies credentials and opens a new session. An unknown username
// and a wrong password produce the same form-wide error, so the response
// never reveals which half was wrong.
func (app *App) Login(username, password string) (*Session, fieldErrors, error) {
	if errs := validateLogin(username, password); len(errs) > 0 {
		return nil, errs, nil
	}

	account, err := app.db.AccountByUsername(username)
	if err != nil || !checkPassword(account.PwHash, password) {
		errs := fieldErrors{}
		errs.add(formWide, ErrInvalidCredentials)
		return nil, errs, nil
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, nil, fmt.Errorf("session token: %w", err)
	}
	session, err := app.db.CreateSession(token, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil, nil
}

// Logout destroys the session record for token. Deleting an already absent
// token is harmless.
func (app *App) Logout(token string) error {
	return app.db.DeleteSession(token)
}

// FollowAccount makes who follow the account named whomName. A missing
// target surfaces as the store's lookup error; following an account twice
// is a no-op.
func (app *App) FollowAccount(who *Account, whomName string) error {
	whom, err := app.db.AccountByUsername(whomName)
	if err != nil {
		return err
	}
	if whom.ID == who.ID {
		return ErrSelfFollow
	}
	return app.db.InsertFollow(who.ID, whom.ID)
}

// UnfollowAccount removes the follow edge from who to whomName, if any.
func (app *App) UnfollowAccount(who *Account, whomName string) error {
	whom, err := app.db.AccountByUsername(whomName)
	if err != nil {
		return err
	}
	if whom.ID == who.ID {
		return ErrSelfFollow
	}
	return app.db.DeleteFollow(who.ID, whom.ID)
}

// UpdateEmail changes an account's email after re-running the email rules.
func (app *App) UpdateEmail(account *Account, email string) (fieldErrors, error) {
	errs := fieldErrors{}
	if email == "" {
		errs.add("email", ErrRequired)
	} else if !validEmail(email) {
		errs.add("email", ErrInvalidFormat)
	}
	if len(errs) > 0 {
		return errs, nil
	}
	if err := app.db.UpdateAccountEmail(account.ID, email); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	return nil, nil
}
