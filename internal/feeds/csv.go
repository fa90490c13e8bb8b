package feeds

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// readCSV reads every record of a loosely formatted CSV: ragged rows,
// stray quotes and leading spaces are tolerated. comment 0 disables
// comment skipping.
func readCSV(r io.Reader, comment rune) ([][]string, error) {
	rd := csv.NewReader(r)
	rd.Comment = comment
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	rd.LazyQuotes = true
	return rd.ReadAll()
}

// nonBlankLines splits text into lines, dropping blank ones and, when
// skipComments is set, lines starting with '#'.
func nonBlankLines(text string, skipComments bool) []string {
	var out []string
	for _, ln := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		t := strings.TrimSpace(ln)
		if t == "" {
			continue
		}
		if skipComments && strings.HasPrefix(t, "#") {
			continue
		}
		out = append(out, ln)
	}
	return out
}

// parseNumber parses a trimmed cell as float64.
func parseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseInt accepts "2024" as well as "2024.0".
func parseInt(cell string) (int, bool) {
	c := strings.TrimSpace(cell)
	if n, err := strconv.Atoi(c); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(c, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
