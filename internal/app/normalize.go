package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"assoc-quiz-service/internal/domain"
)

// Keys that alternate exports use for translation fields.
var reactionKeyAliases = map[string]string{
	"reaction_translation":         "translation",
	"reaction_translation_comment": "translation_comment",
}

// Person keys owned by the importer rather than the payload.
var reservedPersonKeys = map[string]struct{}{
	"id":          {},
	"quiz_id":     {},
	"uuid":        {},
	"is_reviewed": {},
}

// canonicalKey trims and lower-cases a field name and joins words with underscores.
func canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.NewReplacer("-", "_", " ", "_").Replace(key)
}

// normalizePerson canonicalizes participant field names, dropping importer-owned keys.
func normalizePerson(data map[string]any) domain.Attributes {
	attrs := make(domain.Attributes, len(data))
	for k, v := range data {
		key := canonicalKey(k)
		if _, reserved := reservedPersonKeys[key]; reserved {
			continue
		}
		attrs[key] = v
	}
	return attrs
}

// reactionPayload is a reaction payload with canonical keys and its stimulus text split out.
type reactionPayload struct {
	stimulus string
	reaction domain.Reaction
}

// normalizeReaction canonicalizes key names, applies the translation aliases and
// derives reaction_time/keylog. Person, quiz and stimulus ids are left for the caller.
func normalizeReaction(raw map[string]any) (reactionPayload, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		key := canonicalKey(k)
		if alias, ok := reactionKeyAliases[key]; ok {
			key = alias
		}
		fields[key] = v
	}

	var out reactionPayload
	if s := optionalString(fields["stimulus"]); s != nil {
		out.stimulus = *s
	}
	out.reaction.Reaction = optionalString(fields["reaction"])
	out.reaction.Translation = optionalString(fields["translation"])
	out.reaction.TranslationComment = optionalString(fields["translation_comment"])

	elapsed, err := reactionTime(fields)
	if err != nil {
		return out, err
	}
	if elapsed != nil {
		keylog := ""
		if s := optionalString(fields["key_log"]); s != nil {
			keylog = *s
		} else if s := optionalString(fields["keylog"]); s != nil {
			keylog = *s
		}
		out.reaction.ReactionTime = elapsed
		out.reaction.Keylog = &keylog
	}
	return out, nil
}

// reactionTime prefers an explicit reaction_time, then end_time - start_time.
// A nil result encodes a no-response event.
func reactionTime(fields map[string]any) (*int64, error) {
	if v, ok := fields["reaction_time"]; ok && v != nil {
		rt, err := toInt64(v)
		if err != nil {
			return nil, fmt.Errorf("reaction_time: %w", err)
		}
		return &rt, nil
	}
	start, hasStart := fields["start_time"]
	end, hasEnd := fields["end_time"]
	if !hasStart || !hasEnd || start == nil || end == nil {
		return nil, nil
	}
	s, err := toInt64(start)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	e, err := toInt64(end)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}
	rt := e - s
	return &rt, nil
}

func optionalString(v any) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case string:
		return &s
	default:
		str := fmt.Sprint(s)
		return &str
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral value %v", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
