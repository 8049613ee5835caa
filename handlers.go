package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

// server maps HTTP requests onto the account flows.
type server struct {
	app         *App
	store       *sessions.CookieStore
	log         *logrus.Logger
	templateDir string
}

func newServer(app *App, store *sessions.CookieStore, log *logrus.Logger) *server {
	return &server{app: app, store: store, log: log, templateDir: "templates"}
}

// GET / — home for the signed-in account
func (s *server) homeHandler(w http.ResponseWriter, r *http.Request) {
	current := s.currentAccount(r)
	if current == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	accounts, err := s.app.db.ListAccounts(50)
	if err != nil {
		s.log.WithError(err).Error("list accounts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "home.html", map[string]interface{}{
		"current":  accountView(current),
		"accounts": accountViews(accounts),
	})
}

// GET + POST /signup
func (s *server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if s.currentAccount(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := map[string]interface{}{
		"errors":   errorView(nil, "username", "email", "password1", "password2"),
		"username": "",
		"email":    "",
	}

	if r.Method == "POST" {
		in := signupInput{
			Username:  r.FormValue("username"),
			Email:     r.FormValue("email"),
			Password1: r.FormValue("password1"),
			Password2: r.FormValue("password2"),
		}

		session, errs, err := s.app.Register(in)
		if err != nil {
			s.log.WithError(err).Error("signup")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if len(errs) == 0 {
			s.establishSession(w, r, session)
			s.addFlash(w, r, "You were successfully registered and logged in")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		data["errors"] = errorView(errs, "username", "email", "password1", "password2")
		data["username"] = in.Username
		data["email"] = in.Email
	}

	s.render(w, r, "signup.html", data)
}

// GET + POST /login
func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if s.currentAccount(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := map[string]interface{}{
		"errors":      errorView(nil, "username", "password"),
		"form_errors": []string{},
		"username":    "",
	}

	if r.Method == "POST" {
		username := r.FormValue("username")
		password := r.FormValue("password")

		session, errs, err := s.app.Login(username, password)
		if err != nil {
			s.log.WithError(err).Error("login")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if len(errs) == 0 {
			s.establishSession(w, r, session)
			s.addFlash(w, r, "You were logged in")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		data["errors"] = errorView(errs, "username", "password")
		data["form_errors"] = errs.messagesFor(formWide)
		data["username"] = username
	}

	s.render(w, r, "login.html", data)
}

// GET + POST /logout
func (s *server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	cookie, _ := s.store.Get(r, sessionName)
	if token, ok := cookie.Values["token"].(string); ok && token != "" {
		if err := s.app.Logout(token); err != nil {
			s.log.WithError(err).Error("logout")
		}
	}
	delete(cookie.Values, "token")
	cookie.Save(r, w)
	s.addFlash(w, r, "You were logged out")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET /users/{username} — profile
func (s *server) profileHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	account, err := s.app.db.AccountByUsername(username)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	followers, following, err := s.app.db.FollowCounts(account.ID)
	if err != nil {
		s.log.WithError(err).Error("follow counts")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	current := s.currentAccount(r)
	followed := false
	isSelf := false
	if current != nil {
		isSelf = current.ID == account.ID
		if !isSelf {
			followed, _ = s.app.db.IsFollowing(current.ID, account.ID)
		}
	}

	s.render(w, r, "profile.html", map[string]interface{}{
		"profile":   accountView(account),
		"followers": followers,
		"following": following,
		"followed":  followed,
		"is_self":   isSelf,
		"current":   accountView(current),
	})
}

// GET + POST /users/{username}/edit — own profile only
func (s *server) editProfileHandler(w http.ResponseWriter, r *http.Request) {
	current := s.currentAccount(r)
	if current == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if mux.Vars(r)["username"] != current.Username {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	data := map[string]interface{}{
		"errors":  errorView(nil, "email"),
		"email":   current.Email,
		"current": accountView(current),
	}

	if r.Method == "POST" {
		email := r.FormValue("email")

		errs, err := s.app.UpdateEmail(current, email)
		if err != nil {
			s.log.WithError(err).Error("edit profile")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if len(errs) == 0 {
			s.addFlash(w, r, "Your profile was updated")
			http.Redirect(w, r, "/users/"+current.Username, http.StatusFound)
			return
		}

		data["errors"] = errorView(errs, "email")
		data["email"] = email
	}

	s.render(w, r, "edit_profile.html", data)
}

// POST /users/{username}/follow
func (s *server) followHandler(w http.ResponseWriter, r *http.Request) {
	current := s.currentAccount(r)
	if current == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username := mux.Vars(r)["username"]
	err := s.app.FollowAccount(current, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		http.NotFound(w, r)
	case errors.Is(err, ErrSelfFollow):
		http.Error(w, "You cannot follow yourself", http.StatusBadRequest)
	case err != nil:
		s.log.WithError(err).Error("follow")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.addFlash(w, r, fmt.Sprintf("You are now following \"%s\"", username))
		http.Redirect(w, r, "/users/"+username, http.StatusFound)
	}
}

// POST /users/{username}/unfollow
func (s *server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	current := s.currentAccount(r)
	if current == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	username := mux.Vars(r)["username"]
	err := s.app.UnfollowAccount(current, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		http.NotFound(w, r)
	case errors.Is(err, ErrSelfFollow):
		http.Error(w, "You cannot unfollow yourself", http.StatusBadRequest)
	case err != nil:
		s.log.WithError(err).Error("unfollow")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	default:
		s.addFlash(w, r, fmt.Sprintf("You are no longer following \"%s\"", username))
		http.Redirect(w, r, "/users/"+username, http.StatusFound)
	}
}

// GET /users/{username}/following
func (s *server) followingHandler(w http.ResponseWriter, r *http.Request) {
	s.followListHandler(w, r, "Following", (*DB).Following)
}

// GET /users/{username}/followers
func (s *server) followersHandler(w http.ResponseWriter, r *http.Request) {
	s.followListHandler(w, r, "Followers", (*DB).Followers)
}

func (s *server) followListHandler(w http.ResponseWriter, r *http.Request, title string, list func(*DB, int64) ([]Account, error)) {
	username := mux.Vars(r)["username"]
	account, err := s.app.db.AccountByUsername(username)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	accounts, err := list(s.app.db, account.ID)
	if err != nil {
		s.log.WithError(err).Error("follow list")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "follow_list.html", map[string]interface{}{
		"title":    title,
		"profile":  accountView(account),
		"accounts": accountViews(accounts),
	})
}
