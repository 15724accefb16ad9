// Package utils предоставляет вспомогательные функции: файловый логгер,
// graceful shutdown и очистку текста, пришедшего от LLM.
package utils

import (
	"strings"
	"unicode/utf8"
)

// CleanJsonBlock удаляет markdown-обёртку вокруг JSON.
//
// Модели иногда присылают аргументы tool call обёрнутыми в кодовый блок:
//
//	```json
//	{"path": "data"}
//	```
//
// Примеры:
//
//	```json {"a": 1} ``` → {"a": 1}
//	``` {"a": 1} ```     → {"a": 1}
func CleanJsonBlock(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{"```json", "```JSON", "```Json", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// ExtractJSON возвращает первый JSON-объект {...} из текста.
//
// Пустая строка, если объект не найден. Не валидирует результат.
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}

// Truncate обрезает строку до max символов (рун) и добавляет "...".
//
// max <= 0 означает "без ограничения".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	n := 0
	for i := range s {
		if n == max {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
