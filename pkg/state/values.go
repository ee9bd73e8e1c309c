package state

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-storeform/pkg/model"
	"github.com/goliatone/go-storeform/pkg/upload"
)

func defaultValue(field model.Field) any {
	switch field.Kind {
	case model.KindFile:
		return upload.UnchangedFile("")
	case model.KindMultiSelect:
		values, err := toStrings(field.Default)
		if err != nil || values == nil {
			return []string{}
		}
		return values
	default:
		if field.Default == nil {
			return ""
		}
		return stringValue(field.Default)
	}
}

func coerce(field model.Field, raw any) (any, error) {
	switch field.Kind {
	case model.KindFile:
		switch v := raw.(type) {
		case upload.FileValue:
			return v, nil
		case string:
			return upload.UnchangedFile(v), nil
		case nil:
			return upload.UnchangedFile(""), nil
		}
	case model.KindMultiSelect:
		values, err := toStrings(raw)
		if err == nil {
			if values == nil {
				values = []string{}
			}
			return values, nil
		}
	default:
		switch raw.(type) {
		case nil, string, bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			return stringValue(raw), nil
		}
	}
	return nil, fmt.Errorf("%w %q: %T", ErrInvalidValue, field.Name, raw)
}

func toStrings(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringValue(item))
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a list", raw)
	}
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

func fileValue(raw any) upload.FileValue {
	if value, ok := raw.(upload.FileValue); ok {
		return value
	}
	return upload.UnchangedFile("")
}

func cloneValue(value any) any {
	if list, ok := value.([]string); ok {
		return append([]string{}, list...)
	}
	return value
}

func equalValues(a, b any) bool {
	la, aList := a.([]string)
	lb, bList := b.([]string)
	if aList || bList {
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if la[i] != lb[i] {
				return false
			}
		}
		return aList == bList
	}
	fa, aFile := a.(upload.FileValue)
	fb, bFile := b.(upload.FileValue)
	if aFile || bFile {
		return aFile && bFile && fa.State == fb.State && fa.Existing == fb.Existing && fa.File == fb.File
	}
	return a == b
}
