package openapi

import (
	"strings"
	"unicode"
)

const relationshipExtensionKey = "x-relationships"

type relationInfo struct {
	kind   string
	target string
}

var relationshipKeyLookup = map[string]string{
	"type":   "type",
	"kind":   "type",
	"target": "target",
	"model":  "target",
}

// relationship reads the x-relationships extension of a property. Keys are
// matched case and separator insensitively, so "Kind" and "type" agree.
func relationship(ext map[string]any) relationInfo {
	raw, ok := ext[relationshipExtensionKey].(map[string]any)
	if !ok || len(raw) == 0 {
		return relationInfo{}
	}
	var info relationInfo
	for key, val := range raw {
		str, ok := val.(string)
		if !ok || str == "" {
			continue
		}
		switch relationshipKeyLookup[normaliseKey(key)] {
		case "type":
			info.kind = normaliseKey(str)
		case "target":
			info.target = strings.TrimSpace(str)
		}
	}
	return info
}

func normaliseKey(raw string) string {
	var builder strings.Builder
	builder.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(unicode.ToLower(r))
		}
	}
	return builder.String()
}
