package ical

import (
	"strings"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/domain"
)

const (
	prodID    = "-//Lapa Casa Hostel//Bed Ledger//EN"
	uidDomain = "lapacasahostel.com"
)

// Export renders one VEVENT per entry as an OTA-consumable calendar. Callers
// pass only the entries that actually block inventory.
func Export(room domain.Room, entries []domain.LedgerEntry, now time.Time) string {
	var b strings.Builder
	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+prodID)
	writeLine(&b, "CALSCALE:GREGORIAN")
	writeLine(&b, "X-WR-CALNAME:"+escapeText(room.Name))

	stamp := now.UTC().Format("20060102T150405Z")
	for _, e := range entries {
		writeLine(&b, "BEGIN:VEVENT")
		writeLine(&b, "UID:"+e.ID+"@"+uidDomain)
		writeLine(&b, "DTSTAMP:"+stamp)
		writeLine(&b, "DTSTART;VALUE=DATE:"+e.Stay.CheckIn.Format("20060102"))
		writeLine(&b, "DTEND;VALUE=DATE:"+e.Stay.CheckOut.Format("20060102"))
		writeLine(&b, "SUMMARY:CLOSED - Not available")
		writeLine(&b, "END:VEVENT")
	}

	writeLine(&b, "END:VCALENDAR")
	return b.String()
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}

func escapeText(v string) string {
	r := strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)
	return r.Replace(v)
}
