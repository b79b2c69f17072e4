package ical

import (
	"regexp"
	"strconv"
	"strings"
)

// platformRule maps free-text markers to an OTA platform. Rules are ordered;
// the first match wins, so new OTAs can be appended without touching the
// parser itself.
type platformRule struct {
	platform string
	markers  []string
}

var platformRules = []platformRule{
	{"airbnb", []string{"airbnb"}},
	{"booking.com", []string{"booking.com", "booking"}},
	{"hostelworld", []string{"hostelworld", "hostel world"}},
	{"expedia", []string{"expedia"}},
	{"vrbo", []string{"vrbo", "homeaway"}},
}

// InferPlatform guesses the OTA from uid/summary/description text. Returns
// "ical" when nothing matches.
func InferPlatform(texts ...string) string {
	joined := strings.ToLower(strings.Join(texts, " "))
	for _, r := range platformRules {
		for _, m := range r.markers {
			if strings.Contains(joined, m) {
				return r.platform
			}
		}
	}
	return "ical"
}

var blockedMarkers = []string{
	"blocked", "maintenance", "not available", "unavailable", "closed", "out of order",
}

func looksBlocked(texts ...string) bool {
	joined := strings.ToLower(strings.Join(texts, " "))
	for _, m := range blockedMarkers {
		if strings.Contains(joined, m) {
			return true
		}
	}
	return false
}

var guestCountRe = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:guests?|pax|people|persons?|pessoas?)`)

// extractGuestCount pulls a best-effort guest count out of free text.
// Returns 0 when nothing plausible is found.
func extractGuestCount(texts ...string) int {
	for _, t := range texts {
		if m := guestCountRe.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
