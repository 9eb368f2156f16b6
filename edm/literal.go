package edm

import (
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateTimeLayout       = "2006-01-02T15:04:05.999999999"
	dateTimeOffsetLayout = time.RFC3339Nano
)

// FormatLiteral renders value as an OData URI literal of type t, ready to be
// embedded in a key predicate. Strings are quoted and percent-encoded;
// numbers and booleans are bare with the type suffix OData requires.
func FormatLiteral(t SimpleType, value any) (string, error) {
	if value == nil {
		return "", fmt.Errorf("nil value for %s", t)
	}

	switch t {
	case String:
		s, ok := value.(string)
		if !ok {
			s = fmt.Sprint(value)
		}
		return "'" + escapeLiteral(strings.ReplaceAll(s, "'", "''")) + "'", nil

	case Boolean:
		switch v := value.(type) {
		case bool:
			return strconv.FormatBool(v), nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("invalid %s value %q", t, v)
			}
			return strconv.FormatBool(b), nil
		}

	case Byte, SByte, Int16, Int32:
		n, err := toInt64(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		if err := checkRange(t, n); err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil

	case Int64:
		n, err := toInt64(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		return strconv.FormatInt(n, 10) + "L", nil

	case Decimal:
		f, err := toDecimalString(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		return f + "M", nil

	case Double, Single:
		f, err := toFloat64(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		suffix, bits := "d", 64
		if t == Single {
			suffix, bits = "f", 32
		}
		return strconv.FormatFloat(f, 'G', -1, bits) + suffix, nil

	case Guid:
		var id uuid.UUID
		switch v := value.(type) {
		case uuid.UUID:
			id = v
		case string:
			parsed, err := uuid.Parse(v)
			if err != nil {
				return "", fmt.Errorf("invalid %s value %q: %w", t, v, err)
			}
			id = parsed
		default:
			return "", fmt.Errorf("invalid %s value of type %T", t, value)
		}
		return "guid'" + id.String() + "'", nil

	case DateTime:
		tm, err := toTime(value, dateTimeLayout)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		return "datetime'" + escapeLiteral(tm.Format(dateTimeLayout)) + "'", nil

	case DateTimeOffset:
		tm, err := toTime(value, dateTimeOffsetLayout)
		if err != nil {
			return "", fmt.Errorf("invalid %s value: %w", t, err)
		}
		return "datetimeoffset'" + escapeLiteral(tm.Format(dateTimeOffsetLayout)) + "'", nil

	case Time:
		switch v := value.(type) {
		case time.Duration:
			return "time'" + formatDuration(v) + "'", nil
		case string:
			return "time'" + escapeLiteral(v) + "'", nil
		}

	case Binary:
		switch v := value.(type) {
		case []byte:
			return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'", nil
		case string:
			if _, err := hex.DecodeString(v); err != nil {
				return "", fmt.Errorf("invalid %s value %q", t, v)
			}
			return "X'" + strings.ToUpper(v) + "'", nil
		}

	default:
		return "", fmt.Errorf("unsupported key type %q", t)
	}
	return "", fmt.Errorf("invalid %s value of type %T", t, value)
}

// escapeLiteral percent-encodes s for a path segment. Quotes stay literal
// since they delimit the value.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "%27", "'")
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not integral", v)
		}
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("unsupported value type %T", value)
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	}
	n, err := toInt64(value)
	return float64(n), err
}

func toDecimalString(value any) (string, error) {
	if s, ok := value.(string); ok {
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	f, err := toFloat64(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func toTime(value any, layout string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, l := range []string{layout, time.RFC3339Nano, dateTimeLayout} {
			if tm, err := time.Parse(l, v); err == nil {
				return tm, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", v)
	}
	return time.Time{}, fmt.Errorf("unsupported value type %T", value)
}

func checkRange(t SimpleType, n int64) error {
	var lo, hi int64
	switch t {
	case Byte:
		lo, hi = 0, math.MaxUint8
	case SByte:
		lo, hi = math.MinInt8, math.MaxInt8
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	default:
		lo, hi = math.MinInt32, math.MaxInt32
	}
	if n < lo || n > hi {
		return fmt.Errorf("%d out of range for %s", n, t)
	}
	return nil
}

// formatDuration renders d as an xsd:duration (PT#H#M#S).
func formatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteString("PT")
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	if h > 0 {
		b.WriteString(strconv.FormatInt(int64(h), 10) + "H")
	}
	if m > 0 {
		b.WriteString(strconv.FormatInt(int64(m), 10) + "M")
	}
	if d > 0 || (h == 0 && m == 0) {
		b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S")
	}
	return b.String()
}
