package service

import (
	"fmt"
	"math"
	"time"

	"deadline-buddy/internal/model"
)

// DisplayLayout renders instants in chat replies.
const DisplayLayout = "02/01/2006 15:04"

// FormatLocal renders t in the group's zone followed by the zone label.
func FormatLocal(t time.Time, tz model.Timezone) string {
	return fmt.Sprintf("%s %s", t.In(tz.Location()).Format(DisplayLayout), tz)
}

// FormatLead renders a lead time as whole hours when possible, else minutes.
func FormatLead(lead time.Duration) string {
	if lead >= time.Hour && lead%time.Hour == 0 {
		return fmt.Sprintf("%d jam", int64(lead/time.Hour))
	}
	return fmt.Sprintf("%d menit", int64(lead/time.Minute))
}

// RelativeTime describes target relative to now in Indonesian,
// e.g. "dalam 15 menit" or "2 jam yang lalu".
func RelativeTime(target, now time.Time) string {
	d := target.Sub(now)
	past := d < 0
	if past {
		d = -d
	}

	var amount string
	switch {
	case d < 45*time.Second:
		amount = "beberapa detik"
	case d < 90*time.Second:
		amount = "1 menit"
	case d < 45*time.Minute:
		amount = fmt.Sprintf("%d menit", int(math.Round(d.Minutes())))
	case d < 90*time.Minute:
		amount = "1 jam"
	case d < 22*time.Hour:
		amount = fmt.Sprintf("%d jam", int(math.Round(d.Hours())))
	case d < 36*time.Hour:
		amount = "1 hari"
	default:
		amount = fmt.Sprintf("%d hari", int(math.Round(d.Hours()/24)))
	}

	if past {
		return amount + " yang lalu"
	}
	return "dalam " + amount
}
