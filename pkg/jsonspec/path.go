package jsonspec

import (
	"regexp"
	"strconv"
	"strings"
)

// segmentRe выделяет каждый [...] сегмент пути.
var segmentRe = regexp.MustCompile(`\[.*?\]`)

// Segment — один шаг пути: ключ объекта или индекс массива.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// ParsePath разбирает путь вида data["features"][0]["properties"].
//
// Из каждого [...] убираются скобки и кавычки (" и '); сегмент из одних
// цифр становится индексом массива. Текст вне скобок игнорируется, поэтому
// "data" и "" — это корень.
func ParsePath(text string) []Segment {
	matches := segmentRe.FindAllString(text, -1)
	segments := make([]Segment, 0, len(matches))

	for _, m := range matches {
		raw := m[1 : len(m)-1]
		raw = strings.ReplaceAll(raw, `"`, "")
		raw = strings.ReplaceAll(raw, "'", "")

		if isDigits(raw) {
			if n, err := strconv.Atoi(raw); err == nil {
				segments = append(segments, Segment{Key: raw, Index: n, IsIndex: true})
				continue
			}
		}
		segments = append(segments, Segment{Key: raw})
	}

	return segments
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
