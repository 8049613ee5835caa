package main

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrorKind classifies a form validation failure independently of the
// user-facing message.
type ErrorKind string

const (
	ErrRequired           ErrorKind = "required"
	ErrInvalidFormat      ErrorKind = "invalid_format"
	ErrDuplicate          ErrorKind = "duplicate"
	ErrTooShort           ErrorKind = "too_short"
	ErrTooSimilar         ErrorKind = "too_similar"
	ErrNumericOnly        ErrorKind = "numeric_only"
	ErrMismatch           ErrorKind = "mismatch"
	ErrInvalidCredentials ErrorKind = "invalid_credentials"
)

// formWide is the pseudo-field for errors that belong to the whole form
// rather than a single input.
const formWide = "__all__"

// messages maps error kinds to user-facing text. The strings are data:
// swapping this table out localizes the app without touching any logic.
var messages = map[ErrorKind]string{
	ErrRequired:           "This field is required.",
	ErrInvalidFormat:      "Enter a valid email address.",
	ErrDuplicate:          "A user with that username already exists.",
	ErrTooShort:           "This password is too short. It must contain at least 8 characters.",
	ErrNumericOnly:        "This password is entirely numeric.",
	ErrMismatch:           "The two password fields didn't match.",
	ErrInvalidCredentials: "Please enter a correct username and password. Note that both fields may be case-sensitive.",
}

type fieldError struct {
	Kind    ErrorKind
	Message string
}

// fieldErrors maps form field names to their ordered error lists. A nil or
// empty map means the input validated.
type fieldErrors map[string][]fieldError

func (fe fieldErrors) add(field string, kind ErrorKind) {
	fe[field] = append(fe[field], fieldError{Kind: kind, Message: messages[kind]})
}

func (fe fieldErrors) addMessage(field string, kind ErrorKind, message string) {
	fe[field] = append(fe[field], fieldError{Kind: kind, Message: message})
}

func (fe fieldErrors) has(field string, kind ErrorKind) bool {
	for _, e := range fe[field] {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// messagesFor flattens one field's errors for rendering.
func (fe fieldErrors) messagesFor(field string) []string {
	msgs := make([]string, 0, len(fe[field]))
	for _, e := range fe[field] {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

type signupInput struct {
	Username  string
	Email     string
	Password1 string
	Password2 string
}

const minPasswordLength = 8

// similarityThreshold is the cutoff above which a password is considered a
// near-repeat of another account attribute.
const similarityThreshold = 0.7

// validateSignup checks raw signup input and collects every applicable error
// per field. usernameTaken is the store's answer for the submitted username;
// it is only consulted when a username was submitted at all. The password
// strength checks need a password to look at, so they are skipped while
// either password field is empty.
func validateSignup(in signupInput, usernameTaken bool) fieldErrors {
	errs := fieldErrors{}

	if in.Username == "" {
		errs.add("username", ErrRequired)
	} else if usernameTaken {
		errs.add("username", ErrDuplicate)
	}

	if in.Email == "" {
		errs.add("email", ErrRequired)
	} else if !validEmail(in.Email) {
		errs.add("email", ErrInvalidFormat)
	}

	if in.Password1 == "" {
		errs.add("password1", ErrRequired)
	}
	if in.Password2 == "" {
		errs.add("password2", ErrRequired)
	}
	if in.Password1 == "" || in.Password2 == "" {
		return errs
	}

	if utf8.RuneCountInString(in.Password1) < minPasswordLength {
		errs.add("password2", ErrTooShort)
	}
	if attr := similarAttribute(in.Password1, in.Username, in.Email); attr != "" {
		errs.addMessage("password2", ErrTooSimilar, "The password is too similar to the "+attr+".")
	}
	if numericOnly(in.Password1) {
		errs.add("password2", ErrNumericOnly)
	}
	if in.Password1 != in.Password2 {
		errs.add("password2", ErrMismatch)
	}
	return errs
}

// validateLogin only checks presence. The credential check happens in the
// login flow, and only once both fields were submitted.
func validateLogin(username, password string) fieldErrors {
	errs := fieldErrors{}
	if username == "" {
		errs.add("username", ErrRequired)
	}
	if password == "" {
		errs.add("password", ErrRequired)
	}
	return errs
}

// validEmail accepts addresses that net/mail parses and that round-trip
// bare, which rejects display names and comments.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func numericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// similarAttribute reports which account attribute the password nearly
// repeats ("username" or "email"), or "" when it is sufficiently distinct.
// The comparison is case-insensitive and also covers the separated parts of
// the email address, so "bob@corp.example" guards "bob", "corp" and
// "example" individually.
func similarAttribute(password, username, email string) string {
	pw := strings.ToLower(password)
	if tooSimilar(pw, strings.ToLower(username)) {
		return "username"
	}
	lower := strings.ToLower(email)
	parts := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '@' || r == '.' || r == '-' || r == '_' || r == '+'
	})
	for _, p := range append(parts, lower) {
		if tooSimilar(pw, p) {
			return "email"
		}
	}
	return ""
}

// tooSimilar compares two lowercased strings by normalized edit distance or
// by substring containment. Attributes shorter than three characters are too
// generic to guard.
func tooSimilar(password, attr string) bool {
	if utf8.RuneCountInString(attr) < 3 {
		return false
	}
	return similarity(password, attr) >= similarityThreshold
}

func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	longer, shorter := len(ra), len(rb)
	if shorter > longer {
		longer, shorter = shorter, longer
	}
	sim := 1 - float64(levenshtein(ra, rb))/float64(longer)
	// Edit distance alone misses a password that embeds the other string
	// whole. A contained string counts by its share of the total length,
	// so a short fragment of a long password stays below the threshold.
	if strings.Contains(a, b) || strings.Contains(b, a) {
		if c := 2 * float64(shorter) / float64(len(ra)+len(rb)); c > sim {
			sim = c
		}
	}
	return sim
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
