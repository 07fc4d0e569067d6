package gateway

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeJSON converts decoded json.Number values to int64 when the
// literal is an integer that fits, and to an exact Decimal otherwise.
func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		return normalizeNumber(val.String())
	case []any:
		for i := range val {
			val[i] = normalizeJSON(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeJSON(val[k])
		}
		return val
	default:
		return v
	}
}

func normalizeNumber(s string) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if d, ok := ParseDecimal(s); ok {
		return d
	}
	return s
}

// normalizeSQL maps driver-specific scalar types onto the same small set
// of Go types produced by the HTTP client: int64, Decimal, float64 for
// binary floating point columns, string, bool, nil, and time values
// rendered as RFC 3339 strings.
func normalizeSQL(v any, dbType string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int64:
		return val
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return Decimal(strconv.FormatUint(val, 10))
	case float32:
		return float64(val)
	case float64:
		return val
	case []byte:
		return normalizeText(string(val), dbType)
	case string:
		return normalizeText(val, dbType)
	case pgtype.Numeric:
		return normalizeNumeric(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

func normalizeNumeric(n pgtype.Numeric) any {
	switch {
	case !n.Valid:
		return nil
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil:
		return int64(0)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs32(n.Exp))), nil)
	if n.Exp >= 0 {
		i := new(big.Int).Mul(n.Int, scale)
		if i.IsInt64() {
			return i.Int64()
		}
		return Decimal(i.String())
	}
	return decimalFromRat(new(big.Rat).SetFrac(n.Int, scale))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// normalizeText parses numeric text for columns the driver reports as
// numeric. Other text is returned unchanged.
func normalizeText(s, dbType string) any {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "NUMBER", "NEWDECIMAL", "BIGINT", "INT", "INTEGER", "SMALLINT", "TINYINT", "MEDIUMINT":
		return normalizeNumber(s)
	case "FLOAT", "DOUBLE", "REAL", "BINARY_FLOAT", "BINARY_DOUBLE":
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return s
}
