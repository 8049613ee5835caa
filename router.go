package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func (s *server) setupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/", s.homeHandler).Methods("GET")
	r.HandleFunc("/signup", s.signupHandler).Methods("GET", "POST")
	r.HandleFunc("/login", s.loginHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", s.logoutHandler).Methods("GET", "POST")
	r.HandleFunc("/users/{username}", s.profileHandler).Methods("GET")
	r.HandleFunc("/users/{username}/edit", s.editProfileHandler).Methods("GET", "POST")
	r.HandleFunc("/users/{username}/follow", s.followHandler).Methods("POST")
	r.HandleFunc("/users/{username}/unfollow", s.unfollowHandler).Methods("POST")
	r.HandleFunc("/users/{username}/following", s.followingHandler).Methods("GET")
	r.HandleFunc("/users/{username}/followers", s.followersHandler).Methods("GET")

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"took":   time.Since(start),
		}).Debug("request")
	})
}
