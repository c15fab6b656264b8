package template

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// naiveDateTime renders without a zone as "2006-01-02 15:04:05", adding
// six fractional digits only when there are microseconds.
type naiveDateTime time.Time

func (t naiveDateTime) String() string {
	tt := time.Time(t)
	if tt.Nanosecond()/1000 == 0 {
		return tt.Format("2006-01-02 15:04:05")
	}
	return tt.Format("2006-01-02 15:04:05.000000")
}

// calendarDate renders as "2006-01-02".
type calendarDate time.Time

func (d calendarDate) String() string {
	return time.Time(d).Format("2006-01-02")
}

// timedelta renders as "[D day[s], ]H:MM:SS[.ffffff]", e.g. "1 day, 0:00:00".
// Negative durations carry the sign on the day count only.
type timedelta time.Duration

func (d timedelta) String() string {
	const usPerDay = int64(24 * time.Hour / time.Microsecond)

	us := time.Duration(d).Microseconds()
	days := us / usPerDay
	rem := us % usPerDay
	if rem < 0 {
		days--
		rem += usPerDay
	}

	hours := rem / int64(time.Hour/time.Microsecond)
	rem %= int64(time.Hour / time.Microsecond)
	minutes := rem / int64(time.Minute/time.Microsecond)
	rem %= int64(time.Minute / time.Microsecond)
	seconds := rem / int64(time.Second/time.Microsecond)
	micros := rem % int64(time.Second/time.Microsecond)

	var sb strings.Builder
	if days != 0 {
		unit := "days"
		if days == 1 || days == -1 {
			unit = "day"
		}
		fmt.Fprintf(&sb, "%d %s, ", days, unit)
	}
	fmt.Fprintf(&sb, "%d:%02d:%02d", hours, minutes, seconds)
	if micros != 0 {
		fmt.Fprintf(&sb, ".%06d", micros)
	}
	return sb.String()
}

// formatResult turns a generator result into the text substituted for its token.
func formatResult(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return formatList(items)
	case []any:
		return formatList(t)
	default:
		return formatScalar(v, false)
	}
}

func formatList(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		if nested, ok := item.([]any); ok {
			parts[i] = formatList(nested)
			continue
		}
		parts[i] = formatScalar(item, true)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatScalar(v any, quoted bool) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		if quoted {
			return "'" + strings.ReplaceAll(t, "'", `\'`) + "'"
		}
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return formatFloat(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// formatFloat uses shortest round-trip digits,
// a trailing ".0" for integral values, exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
