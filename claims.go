package tokenx

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ClaimsMap holds the JSON object decoded from a token payload.
// Keys are whatever the issuing backend emitted, casing included.
type ClaimsMap map[string]any

// Claim is a single optional claim value. Present distinguishes a missing key
// from a key explicitly set to JSON null (Present with a nil Value).
type Claim struct {
	Value   any
	Present bool
}

// Lookup returns the first claim present under keys, in order.
// An explicit null counts as present and ends the search.
func (c ClaimsMap) Lookup(keys ...string) Claim {
	return c.lookup(keys, NullIsPresent)
}

func (c ClaimsMap) lookup(keys []string, policy NullPolicy) Claim {
	for _, key := range keys {
		v, ok := c[key]
		if !ok {
			continue
		}
		if v == nil && policy == NullIsAbsent {
			continue
		}
		return Claim{Value: v, Present: true}
	}
	return Claim{}
}

// IsNull reports whether the claim was present with a JSON null value.
func (c Claim) IsNull() bool {
	return c.Present && c.Value == nil
}

// Text returns the claim when it is present and holds a JSON string.
func (c Claim) Text() (string, bool) {
	if !c.Present {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

// String coerces the claim to text. Absent and null claims yield "".
func (c Claim) String() string {
	if !c.Present {
		return ""
	}
	return stringify(c.Value)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stringify(item)
		}
		return strings.Join(parts, ",")
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// formatNumber writes plain decimals, switching to exponent form outside
// [1e-6, 1e21) the way JSON numbers are conventionally stringified.
func formatNumber(v float64) string {
	abs := math.Abs(v)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) || math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	s = strings.Replace(s, "e+0", "e+", 1)
	return strings.Replace(s, "e-0", "e-", 1)
}
