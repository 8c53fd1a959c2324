package tag

import (
	"strconv"
	"strings"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/sqlerrors"
)

// ParseBlock parses the text between a tag's open/close delimiters into a
// typed attribute map plus a derived name (spec.md §4.1).
//
// Two shapes are recognized, told apart by whether the block contains the
// record prefix: a block without it is treated wholesale as the tag's
// provided name, and a block with it is a sequence of
// "<record-prefix>key: value" records, whatever its line count.
func ParseBlock(cfg *config.Config, raw string, isMarker bool) (Attrs, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Attrs{}, "", nil
	}

	prefix := cfg.Patterns.RecordPfx
	if prefix == "" || !strings.Contains(trimmed, prefix) {
		return Attrs{}, trimmed, nil
	}

	records := splitRecords(trimmed, prefix)
	if len(records) == 0 {
		return Attrs{}, trimmed, nil
	}

	if isMarker {
		name, _ := splitRecord(records[0])
		return parseAttrRecords(cfg, records[1:]), name, nil
	}

	attrs := parseAttrRecords(cfg, records)
	if name, ok := attrs.Get("name"); ok {
		if s, ok := name.(string); ok {
			return attrs.Without("name"), s, nil
		}
	}

	// No explicit "name" key: derive the name from the first record if it's
	// bare (no value), per spec.md §4.1.
	firstKey, firstVal := splitRecord(records[0])
	if firstVal == "" {
		return attrs.Without(firstKey), firstKey, nil
	}

	return nil, "", &sqlerrors.InvalidTagsError{
		Raw:    raw,
		Reason: "multi-line statement tag omits a 'name' key and the first record is not a bare name",
	}
}

// parseAttrRecords types each record's value per the configured (or
// inferred) type and keys the result by the record's display name,
// including wildcard flags (e.g. "notes*p" stays "notes*p" so callers can
// re-derive its Name via NewName).
func parseAttrRecords(cfg *config.Config, records []string) Attrs {
	attrs := make(Attrs, 0, len(records))

	for _, r := range records {
		key, val := splitRecord(r)
		if key == "" {
			continue
		}

		n := NewName(key, cfg)
		attrs = append(attrs, Attr{Key: key, Value: typeValue(val, cfg.AttrTypes[n.Stripped])})
	}

	return attrs
}

// splitRecord partitions a record on the first ':' into (key, value), both
// trimmed. A record with no ':' is a bare key with an empty value.
func splitRecord(record string) (string, string) {
	idx := strings.IndexByte(record, ':')
	if idx < 0 {
		return strings.TrimSpace(record), ""
	}

	return strings.TrimSpace(record[:idx]), strings.TrimSpace(record[idx+1:])
}

// splitRecords splits a multi-line tag body on lines beginning with prefix;
// continuation lines (not starting with prefix) are folded into the
// preceding record.
func splitRecords(raw, prefix string) []string {
	lines := strings.Split(raw, "\n")

	var (
		records []string
		cur     strings.Builder
		started bool
	)

	flush := func() {
		if started {
			records = append(records, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, prefix) {
			flush()

			started = true

			cur.WriteString(strings.TrimSpace(trimmedLine[len(prefix):]))

			continue
		}

		if started && trimmedLine != "" {
			cur.WriteString(" ")
			cur.WriteString(trimmedLine)
		}
	}

	flush()

	return records
}

// typeValue converts a raw record value string into a list, float, bool, or
// string per spec.md §4.1, using declared when non-empty and otherwise
// inferring the shape from the raw text.
func typeValue(raw, declared string) any {
	raw = strings.TrimSpace(raw)

	switch declared {
	case "list":
		return parseList(raw)
	case "float":
		f, _ := strconv.ParseFloat(raw, 64)
		return f
	case "bool":
		return strings.EqualFold(raw, "true")
	case "str":
		return trimQuotes(raw)
	default:
		return inferValue(raw)
	}
}

func inferValue(raw string) any {
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		return parseList(raw)
	}

	if strings.EqualFold(raw, "true") || strings.EqualFold(raw, "false") {
		return strings.EqualFold(raw, "true")
	}

	if raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}

	return trimQuotes(raw)
}

func parseList(raw string) []string {
	inner := strings.TrimSpace(raw)
	inner = strings.TrimPrefix(inner, "[")
	inner = strings.TrimSuffix(inner, "]")

	if strings.TrimSpace(inner) == "" {
		return []string{}
	}

	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		out = append(out, trimQuotes(strings.TrimSpace(p)))
	}

	return out
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}

	return s
}
