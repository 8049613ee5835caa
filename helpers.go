package main

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/sessions"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
)

const sessionName = "session"

// --- Session helpers ---

func newStore(secret string) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(secret))
	s.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return s
}

// currentAccount resolves the session token in the request cookie to an
// account, or nil for anonymous clients and stale tokens.
func (s *server) currentAccount(r *http.Request) *Account {
	cookie, _ := s.store.Get(r, sessionName)
	token, ok := cookie.Values["token"].(string)
	if !ok || token == "" {
		return nil
	}
	account, err := s.app.db.AccountBySession(token)
	if err != nil {
		return nil
	}
	return account
}

// establishSession stores the session token in the signed cookie.
func (s *server) establishSession(w http.ResponseWriter, r *http.Request, session *Session) {
	cookie, _ := s.store.Get(r, sessionName)
	cookie.Values["token"] = session.Token
	cookie.Save(r, w)
}

func (s *server) addFlash(w http.ResponseWriter, r *http.Request, message string) {
	cookie, _ := s.store.Get(r, sessionName)
	cookie.AddFlash(message)
	cookie.Save(r, w)
}

func (s *server) getFlashes(w http.ResponseWriter, r *http.Request) []string {
	cookie, _ := s.store.Get(r, sessionName)
	var flashes []string
	for _, f := range cookie.Flashes() {
		if msg, ok := f.(string); ok {
			flashes = append(flashes, msg)
		}
	}
	cookie.Save(r, w)
	return flashes
}

// --- Template helpers ---

func (s *server) render(w http.ResponseWriter, r *http.Request, templateFile string, data map[string]interface{}) {
	if _, ok := data["current"]; !ok {
		data["current"] = accountView(s.currentAccount(r))
	}
	if _, ok := data["flashes"]; !ok {
		data["flashes"] = s.getFlashes(w, r)
	}

	tpl, err := gonja.FromFile(filepath.Join(s.templateDir, templateFile))
	if err != nil {
		s.log.WithError(err).Error("template parse")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tpl.Execute(w, exec.NewContext(data)); err != nil {
		s.log.WithError(err).Error("template render")
	}
}

func accountView(a *Account) map[string]interface{} {
	if a == nil {
		return nil
	}
	return map[string]interface{}{
		"username": a.Username,
		"email":    a.Email,
		"joined":   a.CreatedAt.Format("2006-01-02"),
	}
}

func accountViews(accounts []Account) []map[string]interface{} {
	views := make([]map[string]interface{}, 0, len(accounts))
	for i := range accounts {
		views = append(views, accountView(&accounts[i]))
	}
	return views
}

// errorView flattens field errors into per-field message lists, keeping every
// named field present so templates can loop without guarding.
func errorView(errs fieldErrors, fields ...string) map[string]interface{} {
	view := map[string]interface{}{}
	for _, f := range fields {
		view[f] = errs.messagesFor(f)
	}
	return view
}
