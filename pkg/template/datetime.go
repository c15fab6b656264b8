package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultStrftimeFormat is used by strftime when no format is given.
const DefaultStrftimeFormat = "%Y-%m-%d %H:%M:%S"

// now is replaced in tests.
var now = time.Now

func datetimeNamespace() *Namespace {
	return NewNamespace("datetime").
		Register("now", datetimeNow).
		Register("today", datetimeNow).
		Register("utcnow", datetimeUTCNow).
		Register("isoformat", datetimeISOFormat).
		Register("timestamp", datetimeTimestamp).
		Register("strftime", datetimeStrftime, DefaultStrftimeFormat).
		Register("strptime", datetimeStrptime).
		Register("timedelta", datetimeTimedelta, int64(1)).
		Register("fromtimestamp", datetimeFromTimestamp).
		Register("utcfromtimestamp", datetimeUTCFromTimestamp).
		Register("fromisoformat", datetimeFromISOFormat)
}

func localNow() time.Time {
	return now().Truncate(time.Microsecond)
}

func datetimeNow(args Args) (any, error) {
	return naiveDateTime(localNow()), args.atMost(0)
}

func datetimeUTCNow(args Args) (any, error) {
	return naiveDateTime(localNow().UTC()), args.atMost(0)
}

func datetimeISOFormat(args Args) (any, error) {
	t := localNow()
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05"), args.atMost(0)
	}
	return t.Format("2006-01-02T15:04:05.000000"), args.atMost(0)
}

func datetimeTimestamp(args Args) (any, error) {
	return float64(localNow().UnixMicro()) / 1e6, args.atMost(0)
}

// datetimeStrftime formats the current local time.
func datetimeStrftime(args Args) (any, error) {
	format, err := args.str(0)
	if err != nil {
		return nil, err
	}
	return Strftime(localNow(), format), nil
}

// datetimeStrptime parses args[0] with the format in args[1].
func datetimeStrptime(args Args) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: strptime needs a value and a format", ErrMissingArgument)
	}
	value, err := args.str(0)
	if err != nil {
		return nil, err
	}
	format, err := args.str(1)
	if err != nil {
		return nil, err
	}
	t, err := Strptime(value, format)
	if err != nil {
		return nil, err
	}
	return naiveDateTime(t), nil
}

// datetimeTimedelta takes days, seconds, microseconds, milliseconds,
// minutes, hours and weeks in that order.
func datetimeTimedelta(args Args) (any, error) {
	if err := args.atMost(7); err != nil {
		return nil, err
	}
	units := []time.Duration{
		24 * time.Hour, time.Second, time.Microsecond, time.Millisecond,
		time.Minute, time.Hour, 7 * 24 * time.Hour,
	}
	var total time.Duration
	for i := range args {
		n, err := args.float(i)
		if err != nil {
			return nil, err
		}
		total += time.Duration(n * float64(units[i]))
	}
	return timedelta(total.Round(time.Microsecond)), nil
}

func datetimeFromTimestamp(args Args) (any, error) {
	t, err := timestampArg(args)
	if err != nil {
		return nil, err
	}
	return naiveDateTime(t.Local()), nil
}

func datetimeUTCFromTimestamp(args Args) (any, error) {
	t, err := timestampArg(args)
	if err != nil {
		return nil, err
	}
	return naiveDateTime(t.UTC()), nil
}

func timestampArg(args Args) (time.Time, error) {
	ts, err := args.float(0)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(int64(ts * 1e6)), nil
}

func datetimeFromISOFormat(args Args) (any, error) {
	s, err := args.str(0)
	if err != nil {
		return nil, err
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999",
		"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return naiveDateTime(t), nil
		}
	}
	return nil, fmt.Errorf("%w: invalid isoformat string: '%s'", ErrArgumentValue, s)
}

// Strftime formats t using C-style % directives.
// Unknown directives are copied through unchanged.
func Strftime(t time.Time, format string) string {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'Y':
			sb.WriteString(strconv.Itoa(t.Year()))
		case 'y':
			fmt.Fprintf(&sb, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&sb, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&sb, "%02d", t.Day())
		case 'e':
			fmt.Fprintf(&sb, "%2d", t.Day())
		case 'H':
			fmt.Fprintf(&sb, "%02d", t.Hour())
		case 'I':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			fmt.Fprintf(&sb, "%02d", h)
		case 'M':
			fmt.Fprintf(&sb, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&sb, "%02d", t.Second())
		case 'f':
			fmt.Fprintf(&sb, "%06d", t.Nanosecond()/1000)
		case 'p':
			sb.WriteString(t.Format("PM"))
		case 'a':
			sb.WriteString(t.Format("Mon"))
		case 'A':
			sb.WriteString(t.Format("Monday"))
		case 'b', 'h':
			sb.WriteString(t.Format("Jan"))
		case 'B':
			sb.WriteString(t.Format("January"))
		case 'j':
			fmt.Fprintf(&sb, "%03d", t.YearDay())
		case 'w':
			sb.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'u':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			sb.WriteString(strconv.Itoa(wd))
		case 'z':
			sb.WriteString(t.Format("-0700"))
		case 'Z':
			sb.WriteString(t.Format("MST"))
		case 'c':
			sb.WriteString(t.Format("Mon Jan _2 15:04:05 2006"))
		case 'x':
			sb.WriteString(t.Format("01/02/06"))
		case 'X':
			sb.WriteString(t.Format("15:04:05"))
		case 'F':
			sb.WriteString(t.Format("2006-01-02"))
		case 'T':
			sb.WriteString(t.Format("15:04:05"))
		case 's':
			sb.WriteString(strconv.FormatInt(t.Unix(), 10))
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return sb.String()
}

var strptimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'f': "000000",
	'p': "PM",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
}

// Strptime parses value with a C-style % format. The whole value must match.
func Strptime(value, format string) (time.Time, error) {
	var layout strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			layout.WriteByte(c)
			continue
		}
		if i+1 == len(format) {
			return time.Time{}, fmt.Errorf("%w: stray %% in format '%s'", ErrArgumentValue, format)
		}
		i++
		if format[i] == '%' {
			layout.WriteByte('%')
			continue
		}
		l, ok := strptimeLayouts[format[i]]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: '%c' is a bad directive in format '%s'", ErrArgumentValue, format[i], format)
		}
		layout.WriteString(l)
	}

	t, err := time.Parse(layout.String(), value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time data '%s' does not match format '%s'", ErrArgumentValue, value, format)
	}
	return t, nil
}
