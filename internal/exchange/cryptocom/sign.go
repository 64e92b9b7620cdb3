package cryptocom

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// maxParamLevel caps how deep the signature canonicalization descends.
// Deeper structures are stringified wholesale, matching the exchange's
// published signing recipe.
const maxParamLevel = 3

// stringifyNumbers returns a copy of v with every numeric leaf converted
// to its decimal string form. The same converted structure is used for
// both the request body and the signature, so the two can never diverge.
func stringifyNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = stringifyNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = stringifyNumbers(e)
		}
		return out
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return v
	}
}

// canonicalParams flattens a params object into the exchange's signing
// form: keys sorted lexicographically per level, each key immediately
// followed by its rendered value, booleans lowercased, nil rendered as
// "null", arrays concatenated element-wise.
func canonicalParams(params map[string]interface{}) string {
	return renderValue(params, 0)
}

func renderValue(v interface{}, level int) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case map[string]interface{}:
		if level >= maxParamLevel {
			return fmt.Sprintf("%v", t)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out string
		for _, k := range keys {
			out += k + renderValue(t[k], level+1)
		}
		return out
	case []interface{}:
		var out string
		for _, e := range t {
			out += renderValue(e, level+1)
		}
		return out
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// sign computes the request signature: hex HMAC-SHA256 over
// method + id + apiKey + canonical(params) + nonce.
func sign(secret, method string, id int64, apiKey string, params map[string]interface{}, nonce int64) string {
	payload := method + strconv.FormatInt(id, 10) + apiKey + canonicalParams(params) + strconv.FormatInt(nonce, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
