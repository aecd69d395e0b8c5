// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"encoding/json"
	"regexp"
	"strings"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// Multi-valued columns (category, predicate) are stored as a concatenation of
// |value| tokens, e.g. "|biolink:Disease||biolink:NamedThing|".
var listToken = regexp.MustCompile(`\|(.*?)\|`)

// EncodeList renders values in the |value| token format. Values may not
// contain the delimiter.
func EncodeList(values []string) (string, error) {
	var b strings.Builder
	for _, v := range values {
		if strings.Contains(v, "|") {
			return "", sigilerr.Errorf(sigilerr.CodeStoreCodecInvalid, "list value %q contains reserved character '|'", v)
		}
		b.WriteByte('|')
		b.WriteString(v)
		b.WriteByte('|')
	}
	return b.String(), nil
}

// DecodeList reverses EncodeList, preserving token order.
func DecodeList(s string) []string {
	matches := listToken.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// predicateToken is the substring searched for when matching one predicate
// against the encoded predicate column.
func predicateToken(p string) string {
	return "|" + p + "|"
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAttributes(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var attrs map[string]string
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// attributePath builds a json_extract path for an attribute key, quoting it
// so that arbitrary keys cannot escape the path expression.
func attributePath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}
