package mentor

import (
	"fmt"
	"strings"
	"time"

	"babyzen/internal/model"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

const (
	defaultBabyName = "Baby"
	// minDetectConfidence is the whatlanggo confidence needed to trust a detection
	minDetectConfidence = 0.5
)

// babyContext is what the mentor knows before answering
type babyContext struct {
	profile *model.Profile
	events  []model.CareEvent
	cries   []model.Cry
}

// render builds the context block of the system prompt
func (b babyContext) render(now time.Time) string {
	var sb strings.Builder

	name := defaultBabyName
	if b.profile != nil && strings.TrimSpace(b.profile.BabyName) != "" {
		name = strings.TrimSpace(b.profile.BabyName)
	}
	fmt.Fprintf(&sb, "Baby name: %s.\n", name)

	if b.profile != nil && b.profile.BabyDOB != nil {
		if age := formatAge(*b.profile.BabyDOB, now); age != "" {
			fmt.Fprintf(&sb, "Age: %s.\n", age)
		}
	}

	if len(b.events) > 0 {
		items := lo.Map(b.events, func(e model.CareEvent, _ int) string {
			return fmt.Sprintf("%s (%s)", e.Type, formatRelative(e.CreatedAt, now))
		})
		fmt.Fprintf(&sb, "Recent events: %s.\n", strings.Join(items, ", "))
	}

	if len(b.cries) > 0 {
		items := lo.Map(b.cries, func(c model.Cry, _ int) string { return string(c.Type) })
		fmt.Fprintf(&sb, "Recent cries: %s.\n", strings.Join(items, ", "))
	}

	return sb.String()
}

// formatAge renders the age from a date of birth ("12 days", "3 months", "1 year 2 months")
func formatAge(dob, now time.Time) string {
	dob, now = dob.UTC(), now.UTC()
	if now.Before(dob) {
		return ""
	}

	months := (now.Year()-dob.Year())*12 + int(now.Month()-dob.Month())
	if now.Day() < dob.Day() {
		months--
	}

	if months < 1 {
		days := int(now.Sub(dob).Hours() / 24)
		return plural(days, "day")
	}
	if months < 12 {
		return plural(months, "month")
	}

	years, rest := months/12, months%12
	if rest == 0 {
		return plural(years, "year")
	}
	return plural(years, "year") + " " + plural(rest, "month")
}

// formatRelative renders how long ago t was ("just now", "25 min ago", "3 h ago", "2 days ago")
func formatRelative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// replyLanguage picks the profile language, then the detected message language
func replyLanguage(profile *model.Profile, message string) string {
	if profile != nil && model.IsSupportedLanguage(profile.Language) {
		return model.NormalizeLanguage(profile.Language)
	}

	info := whatlanggo.Detect(message)
	if info.Confidence >= minDetectConfidence {
		if code := info.Lang.Iso6391(); model.IsSupportedLanguage(code) {
			return code
		}
	}
	return model.DefaultLanguage
}
