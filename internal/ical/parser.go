// Package ical parses and produces the calendar documents exchanged with OTA
// platforms. Parsing only yields candidate events; it never touches the
// ledger.
package ical

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

const (
	maxEventsPerDocument = 500
	maxDescriptionLen    = 500
)

// Parse normalizes a raw calendar document into candidate events. When
// platformHint is empty the platform is inferred per event from keyword
// heuristics.
func Parse(raw, platformHint string) ([]domain.ImportedEvent, error) {
	if !strings.Contains(raw, "BEGIN:VCALENDAR") {
		return nil, fmt.Errorf("%w: missing VCALENDAR header", domain.ErrFeedParse)
	}

	var (
		events  []domain.ImportedEvent
		props   map[string]string
		inEvent bool
	)
	for _, line := range unfold(raw) {
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			props = map[string]string{}
		case line == "END:VEVENT":
			if !inEvent {
				continue
			}
			inEvent = false
			if ev, ok := buildEvent(props, platformHint); ok {
				events = append(events, ev)
			}
			if len(events) >= maxEventsPerDocument {
				return events, nil
			}
		case inEvent:
			name, value, ok := splitProperty(line)
			if ok {
				props[name] = value
			}
		}
	}
	return events, nil
}

// unfold joins iCal continuation lines (RFC 5545 folding) and normalizes
// line endings.
func unfold(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(out) > 0 {
			out[len(out)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		out = append(out, strings.TrimRight(line, "\r"))
	}
	return out
}

// splitProperty returns the property name (parameters stripped) and value.
func splitProperty(line string) (string, string, bool) {
	i := strings.Index(line, ":")
	if i <= 0 {
		return "", "", false
	}
	name := line[:i]
	if j := strings.Index(name, ";"); j > 0 {
		name = name[:j]
	}
	return strings.ToUpper(strings.TrimSpace(name)), line[i+1:], true
}

func buildEvent(props map[string]string, platformHint string) (domain.ImportedEvent, bool) {
	summary := unescapeText(props["SUMMARY"])
	desc := unescapeText(props["DESCRIPTION"])
	if len(desc) > maxDescriptionLen {
		desc = desc[:maxDescriptionLen]
	}

	uid := strings.TrimSpace(props["UID"])
	if uid == "" {
		// Some feeds omit UIDs; derive a stable one from the content.
		sum := sha1.Sum([]byte(summary + "|" + props["DTSTART"] + "|" + props["DTEND"]))
		uid = hex.EncodeToString(sum[:])
	}

	platform := platformHint
	if platform == "" {
		platform = InferPlatform(uid, summary, desc)
	}

	status := domain.EventConfirmed
	switch {
	case strings.EqualFold(strings.TrimSpace(props["STATUS"]), "CANCELLED"):
		status = domain.EventCancelled
	case looksBlocked(summary, desc):
		status = domain.EventBlocked
	}

	start, okS := parseDate(props["DTSTART"])
	end, okE := parseDate(props["DTEND"])
	if !okS {
		return domain.ImportedEvent{}, false
	}
	if !okE {
		end = start.AddDate(0, 0, 1) // single-day event
	}
	stay, err := domain.NewStayInterval(start, end)
	if err != nil {
		if status != domain.EventCancelled {
			return domain.ImportedEvent{}, false
		}
		// Platforms cancel by re-issuing the UID as a zero-night event.
		// It carries no interval worth keeping, but it must reach the
		// resolver so the stale import gets voided.
		stay = domain.StayInterval{CheckIn: domain.DateOf(start), CheckOut: domain.DateOf(start)}
	}

	return domain.ImportedEvent{
		ExternalID:  uid,
		GuestLabel:  summary,
		GuestCount:  extractGuestCount(summary, desc),
		Platform:    platform,
		Status:      status,
		Stay:        stay,
		Description: desc,
	}, true
}

// parseDate accepts the DATE (20260214) and DATE-TIME (20260214T120000Z)
// forms; only the date part matters for bed inventory.
func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", v[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func unescapeText(v string) string {
	r := strings.NewReplacer(`\n`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(v)
}

// ValidateFeedURL rejects anything that is not a plain public HTTP(S)
// address. Internal-network targets are refused before any fetch happens.
func ValidateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrFeedFetch, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", domain.ErrFeedFetch, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", domain.ErrFeedFetch)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return fmt.Errorf("%w: internal host %q", domain.ErrFeedFetch, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: internal address %q", domain.ErrFeedFetch, host)
		}
	}
	return nil
}
