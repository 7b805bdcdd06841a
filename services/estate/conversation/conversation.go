// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation keeps lightweight per-user session memory.
//
// Sessions hold a compressed summary of prior turns rather than full
// transcripts. Only messages detected as follow-ups get the summary
// injected into the model context, which keeps per-query token overhead
// small. Sessions expire after 30 minutes of inactivity and a background
// sweep reclaims them every 5 minutes.
package conversation

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// SessionTimeout is the inactivity window after which a session is
	// considered expired.
	SessionTimeout = 30 * time.Minute

	// sweepInterval is how often expired sessions are reclaimed.
	sweepInterval = 5 * time.Minute

	// maxSummaryLen caps the compressed summary. Older turns are dropped
	// first when the cap is exceeded.
	maxSummaryLen = 500

	// maxFactsLen caps the key facts extracted from one response.
	maxFactsLen = 250

	// maxQuerySnippet caps how much of a query is quoted in the summary.
	maxQuerySnippet = 80

	// maxResponseSnippet caps the stored tail of the last response.
	maxResponseSnippet = 300
)

// dubaiLocations is the location vocabulary used for fresh-request
// detection: a message naming a location plus a property type or price is
// a new request, not a follow-up.
var dubaiLocations = []string{
	"marina", "jbr", "downtown", "business bay", "jlt", "arjan",
	"dubailand", "silicon oasis", "sports city", "motor city",
	"discovery gardens", "al furjan", "jumeirah", "palm",
	"creek harbour", "sobha hartland", "meydan", "dubai hills",
	"arabian ranches", "damac hills", "town square", "remraam",
	"international city", "al quoz", "barsha", "tecom",
	"greens", "views", "springs", "meadows", "lakes",
	"difc", "world trade centre", "zabeel", "ras al khor",
	"production city", "studio city", "mudon", "villanova",
	"tilal al ghaf", "emaar beachfront", "bluewaters",
	"city walk", "la mer", "dubai south", "expo city",
}

var (
	followupPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(what about|how about|and |also |instead |compare|which one|what if)`),
		regexp.MustCompile(`\b(it|that|this|these|those|the same|the other)\b`),
		regexp.MustCompile(`\b(better|worse|cheaper|more expensive|similar|alternatively|vs|versus)\b`),
	}

	freshCommandRe = regexp.MustCompile(`^(analyze|search|find|look up)\b`)
	propertyTypeRe = regexp.MustCompile(`\b(studio|1br|2br|3br|4br|5br|1bed|2bed|3bed|4bed|5bed|apartment|villa|townhouse|penthouse|duplex)\b`)
	priceRe        = regexp.MustCompile(`\b(aed|under|below|above|over|budget)\b|\d{3,}k|\d[\d,]*\.\d+m|\d{6,}`)

	factPriceRe   = regexp.MustCompile(`AED\s*[\d,]+(?:\.\d+)?(?:\s*[MmKk])?`)
	factScoreRe   = regexp.MustCompile(`(?i)Score[:\s]*(\d+)/100`)
	factNoGoRe    = regexp.MustCompile(`(?i)\bNO[- ]?GO\b`)
	factGoRe      = regexp.MustCompile(`\bGO\b`)
	factBuyRe     = regexp.MustCompile(`(?i)(GOOD|CAUTIOUS|STRONG|WEAK|EXCELLENT)\s+BUY`)
	factChillerRe = regexp.MustCompile(`(?i)(empower|chiller)`)
	factYieldRe   = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*%\s*(gross|net)?\s*yield`)
	factSupplyRe  = regexp.MustCompile(`(?i)oversuppl`)
)

// containsLocation reports whether the message names a known location.
func containsLocation(msg string) bool {
	lower := strings.ToLower(msg)
	for _, loc := range dubaiLocations {
		if strings.Contains(lower, loc) {
			return true
		}
	}
	return false
}

// IsFollowup applies heuristics to decide whether a message continues the
// prior conversation. hasSession must reflect whether the user has a live
// session — without one there is nothing to follow up on.
func IsFollowup(message string, hasSession bool) bool {
	if !hasSession {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(message))

	// A complete fresh request names a location plus a type or price.
	hasLoc := containsLocation(msg)
	if hasLoc && (propertyTypeRe.MatchString(msg) || priceRe.MatchString(msg)) {
		return false
	}
	if freshCommandRe.MatchString(msg) && hasLoc {
		return false
	}

	for _, re := range followupPatterns {
		if re.MatchString(msg) {
			return true
		}
	}

	// Short messages without a location are likely follow-ups.
	return len(msg) < 40 && !hasLoc
}

// extractKeyFacts compresses a full response into a compact fact string:
// location, price, score, verdict, chiller and yield signals.
func extractKeyFacts(response string) string {
	var facts []string
	lower := strings.ToLower(response)

	for _, loc := range dubaiLocations {
		if strings.Contains(lower, loc) {
			facts = append(facts, titleCase(loc))
			break
		}
	}
	if m := factPriceRe.FindString(response); m != "" {
		facts = append(facts, strings.TrimSpace(m))
	}
	if m := factScoreRe.FindStringSubmatch(response); m != nil {
		facts = append(facts, fmt.Sprintf("Score: %s/100", m[1]))
	}
	if factNoGoRe.MatchString(response) {
		facts = append(facts, "NO-GO")
	} else if factGoRe.MatchString(response) {
		facts = append(facts, "GO")
	}
	if m := factBuyRe.FindString(response); m != "" {
		facts = append(facts, strings.ToUpper(m))
	}
	if factChillerRe.MatchString(response) {
		facts = append(facts, "Empower chiller")
	}
	if m := factYieldRe.FindStringSubmatch(response); m != nil {
		y := m[1] + "%"
		if m[2] != "" {
			y += " " + m[2]
		}
		facts = append(facts, y+" yield")
	}
	if factSupplyRe.MatchString(response) {
		facts = append(facts, "oversupply risk")
	}

	result := strings.Join(facts, ", ")
	if result == "" {
		result = strings.ReplaceAll(truncate(response, 150), "\n", " ")
	}
	return truncate(result, maxFactsLen)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// session is one user's compressed conversation state.
type session struct {
	summary             string
	lastQuery           string
	lastResponseSnippet string
	turnCount           int
	lastActivity        time.Time
}

// Store is the in-memory per-user session store.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store and starts the background sweep.
// Call Close to stop it.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		sessions: make(map[string]*session),
		logger:   logger,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// HasSession reports whether the user has a live session. Expired sessions
// are dropped on access.
func (s *Store) HasSession(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(userID) != nil
}

// Context returns the conversation summary to inject for a follow-up, or
// "" when the user has no live session or no summary yet.
func (s *Store) Context(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.liveLocked(userID); sess != nil {
		return sess.summary
	}
	return ""
}

// Update records a completed turn, creating the session if needed. The
// summary grows turn by turn and drops its oldest entries once it exceeds
// the cap.
func (s *Store) Update(userID, query, response string) {
	keyFacts := extractKeyFacts(response)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}

	entry := fmt.Sprintf("%s → %s", truncate(query, maxQuerySnippet), keyFacts)
	if sess.summary == "" {
		sess.summary = "Prior: " + entry
	} else {
		sess.summary = sess.summary + " | Then: " + entry
	}
	if len(sess.summary) > maxSummaryLen {
		parts := strings.Split(sess.summary, " | ")
		for len(strings.Join(parts, " | ")) > maxSummaryLen && len(parts) > 1 {
			parts = parts[1:]
		}
		sess.summary = strings.Join(parts, " | ")
	}

	sess.lastQuery = query
	sess.lastResponseSnippet = truncate(response, maxResponseSnippet)
	sess.turnCount++
	sess.lastActivity = s.now()
}

// Reset clears a user's session.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// ActiveSessions counts live sessions, for metrics.
func (s *Store) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := s.now()
	for _, sess := range s.sessions {
		if now.Sub(sess.lastActivity) <= SessionTimeout {
			n++
		}
	}
	return n
}

// Close stops the background sweep. Idempotent.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// liveLocked returns the user's session if it exists and has not expired,
// deleting it otherwise. Caller holds the lock.
func (s *Store) liveLocked(userID string) *session {
	sess := s.sessions[userID]
	if sess == nil {
		return nil
	}
	if s.now().Sub(sess.lastActivity) > SessionTimeout {
		delete(s.sessions, userID)
		return nil
	}
	return sess
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActivity) > SessionTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("reclaimed expired conversation sessions", slog.Int("count", removed))
	}
}
