// Package game holds the rules the typing challenge page runs on: which
// sentence to type, whether an attempt matches it, and what a time is worth.
package game

import (
	"errors"
	"math/rand/v2"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var ErrNoSentences = errors.New("no target sentences configured")

// Sentences is the pool a round's target is drawn from.
type Sentences struct {
	list []string
}

func NewSentences(list []string) (*Sentences, error) {
	var clean []string
	for _, s := range list {
		if s = normalize(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoSentences
	}
	return &Sentences{list: clean}, nil
}

// Pick returns a random sentence.
func (s *Sentences) Pick() string {
	return s.list[rand.IntN(len(s.list))]
}

// Contains reports whether target is one of the configured sentences.
func (s *Sentences) Contains(target string) bool {
	target = normalize(target)
	for _, t := range s.list {
		if t == target {
			return true
		}
	}
	return false
}

type AttemptResult struct {
	Complete bool `json:"complete"` // typed equals the target
	OnTrack  bool `json:"onTrack"`  // typed is a prefix of the target
}

// CheckAttempt compares typed text to target. Both sides are NFC-normalised,
// since some mobile keyboards emit decomposed Hangul jamo.
func CheckAttempt(target, typed string) AttemptResult {
	t := normalize(target)
	in := norm.NFC.String(typed)
	return AttemptResult{
		Complete: in == t,
		OnTrack:  strings.HasPrefix(t, in),
	}
}

func normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// ShareLink is the URL a player sends to friends; opening it credits userID as referrer.
func ShareLink(baseURL, userID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("ref", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
