// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package collab

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/tasknexus/tasknexus/internal/api"
)

// MaxMentionCandidates caps the autocomplete list.
const MaxMentionCandidates = 5

// lastToken returns the text after the final whitespace of body and the
// byte offset where it starts.
func lastToken(body string) (string, int) {
	i := strings.LastIndexFunc(body, unicode.IsSpace)
	if i < 0 {
		return body, 0
	}
	_, size := utf8.DecodeRuneInString(body[i:])
	return body[i+size:], i + size
}

// MentionQuery returns the text after "@" when the draft ends in a mention
// token with at least one character after the "@".
func MentionQuery(body string) (string, bool) {
	tok, _ := lastToken(body)
	if len(tok) < 2 || tok[0] != '@' {
		return "", false
	}
	return tok[1:], true
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// MatchParticipants returns up to MaxMentionCandidates participants whose
// display name (as written or with whitespace removed) or email local part
// contains query, ignoring case.
func MatchParticipants(participants []api.Person, query string) []api.Person {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	matches := lo.Filter(participants, func(p api.Person, _ int) bool {
		name := strings.ToLower(p.DisplayName)
		return strings.Contains(name, q) ||
			strings.Contains(compact(name), q) ||
			strings.Contains(strings.ToLower(emailLocalPart(p.Email)), q)
	})
	if len(matches) > MaxMentionCandidates {
		matches = matches[:MaxMentionCandidates]
	}
	return matches
}

// MentionHandle is the text inserted after "@" for p.
func MentionHandle(p api.Person) string {
	if local := emailLocalPart(p.Email); local != "" {
		return local
	}
	return compact(p.DisplayName)
}

// ApplyMention replaces the trailing token of body with a mention of p and a
// trailing space.
func ApplyMention(body string, p api.Person) string {
	_, start := lastToken(body)
	return body[:start] + "@" + MentionHandle(p) + " "
}
