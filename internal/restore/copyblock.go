package restore

import (
	"fmt"
	"strings"
)

// copyBlock holds the parsed COPY ... FROM stdin; ... \. block that
// pg_restore's --data-only SQL output embeds for a table's data.
type copyBlock struct {
	Columns   []string
	DataLines []string
}

// nullSentinel is PostgreSQL text-format COPY's NULL marker; it is only a
// sentinel when it is the entire field, distinct from any other backslash
// escape sequence embedded inside a field's value.
const nullSentinel = `\N`

// extractCopyBlock finds the first "COPY <table>(<cols>) FROM stdin;" line
// in sql and returns its column list and the tab-separated data lines up
// to the terminating "\." line. It tolerates data lines that themselves
// contain backslashes, since it only treats a line as the terminator when
// it is exactly "\." — never by scanning for a leading backslash.
func extractCopyBlock(sql string) (copyBlock, error) {
	lines := strings.Split(sql, "\n")

	start := -1
	var header string
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "COPY ") && strings.Contains(line, "FROM stdin;") {
			start = i
			header = line
			break
		}
	}
	if start == -1 {
		return copyBlock{}, fmt.Errorf("no COPY ... FROM stdin; block found")
	}

	cols, err := parseCopyColumns(header)
	if err != nil {
		return copyBlock{}, err
	}

	var data []string
	for i := start + 1; i < len(lines); i++ {
		if lines[i] == `\.` {
			return copyBlock{Columns: cols, DataLines: data}, nil
		}
		data = append(data, lines[i])
	}

	return copyBlock{}, fmt.Errorf("COPY block missing terminating \\. line")
}

// parseCopyColumns extracts the parenthesized, comma-separated, possibly
// double-quoted column list from a "COPY table(col1, col2) FROM stdin;"
// header line.
func parseCopyColumns(header string) ([]string, error) {
	open := strings.IndexByte(header, '(')
	close := strings.LastIndexByte(header, ')')
	if open == -1 || close == -1 || close < open {
		return nil, fmt.Errorf("malformed COPY header: %q", header)
	}
	raw := header[open+1 : close]
	parts := strings.Split(raw, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		if p != "" {
			cols = append(cols, p)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("COPY header has no columns: %q", header)
	}
	return cols, nil
}

// unescapeCopyField reverses PostgreSQL text-format COPY escaping for a
// single tab-delimited field (not the whole line, so embedded literal
// backslashes inside a value never trigger the \N sentinel check).
func unescapeCopyField(field string) (value string, isNull bool) {
	if field == nullSentinel {
		return "", true
	}
	var b strings.Builder
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c != '\\' || i == len(field)-1 {
			b.WriteByte(c)
			continue
		}
		next := field[i+1]
		switch next {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
		}
		i++
	}
	return b.String(), false
}

// copyColumnIndex maps each wanted column to its position in the COPY
// header's column list, or -1 if the column is absent there (the source's
// wider schema case).
func copyColumnIndex(headerCols []string, wanted []string) []int {
	pos := make(map[string]int, len(headerCols))
	for i, c := range headerCols {
		pos[c] = i
	}
	idx := make([]int, len(wanted))
	for i, w := range wanted {
		if p, ok := pos[w]; ok {
			idx[i] = p
		} else {
			idx[i] = -1
		}
	}
	return idx
}

// splitDataLine splits a COPY data line into its tab-separated fields.
func splitDataLine(line string) []string {
	return strings.Split(line, "\t")
}

func fieldAt(fields []string, i int) (string, bool) {
	if i < 0 || i >= len(fields) {
		return "", false
	}
	return fields[i], true
}
