package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-storeform/pkg/upload"
)

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime reads the date and time formats the dashboard inputs emit.
// Zone-less values are read in ref's location; a bare "15:04" time of day is
// placed on ref's date.
func ParseDateTime(value string, ref time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	loc := ref.Location()
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			year, month, day := ref.Date()
			return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("validation: unrecognised date %q", value)
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case upload.FileValue:
		return !v.HasFile()
	default:
		return false
	}
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case upload.FileValue:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
