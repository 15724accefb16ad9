// Package jsonspec даёт агенту доступ к одному JSON документу.
//
// Три операции, которые модель вызывает через инструменты:
//   - Keys  — список ключей объекта по пути
//   - Value — значение по пути (с обрезкой до MaxValueLength)
//   - Query — gjson запрос (фильтры, модификаторы) с той же обрезкой
//
// Документ не изменяется; Spec безопасен для конкурентного чтения.
package jsonspec

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ilkoid/greenery-agent/pkg/utils"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// DefaultMaxValueLength — лимит длины значения по умолчанию.
const DefaultMaxValueLength = 4000

// LargeDictMessage возвращается Value вместо объекта, который длиннее лимита.
const LargeDictMessage = "Value is a large dictionary, should explore its keys directly"

// ErrInvalidDocument — документ не является валидным JSON.
var ErrInvalidDocument = errors.New("jsonspec: document is not valid JSON")

// Spec — JSON документ с операциями чтения по пути.
type Spec struct {
	root           gjson.Result
	maxValueLength int
}

// New создаёт Spec. maxValueLength <= 0 заменяется DefaultMaxValueLength.
func New(raw []byte, maxValueLength int) (*Spec, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidDocument
	}
	if maxValueLength <= 0 {
		maxValueLength = DefaultMaxValueLength
	}
	return &Spec{
		root:           gjson.ParseBytes(raw),
		maxValueLength: maxValueLength,
	}, nil
}

// MaxValueLength возвращает лимит длины значения.
func (s *Spec) MaxValueLength() int {
	return s.maxValueLength
}

// Keys возвращает ключи объекта по пути в порядке документа: ["a", "b"].
//
// Если значение по пути не объект — *NotObjectError с подсказкой модели
// запросить значение напрямую.
func (s *Spec) Keys(path string) (string, error) {
	val, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if !val.IsObject() {
		return "", &NotObjectError{Path: path}
	}

	buf := make([]byte, 0, 64)
	buf = append(buf, '[')
	first := true
	val.ForEach(func(key, _ gjson.Result) bool {
		if !first {
			buf = append(buf, ", "...)
		}
		first = false
		buf = append(buf, key.Raw...)
		return true
	})
	buf = append(buf, ']')

	return string(buf), nil
}

// Value возвращает значение по пути.
//
// Объект, чьё представление длиннее лимита, заменяется LargeDictMessage.
// Остальные значения обрезаются до лимита с "..." в конце.
// Строки возвращаются без кавычек.
func (s *Spec) Value(path string) (string, error) {
	val, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	return s.render(val), nil
}

// Query выполняет gjson запрос от корня документа, например
// features.#(properties.bu_naam=="Binnenstad-Noord").properties._mean
//
// Результат оформляется как в Value. Пустой результат — *NoMatchError.
func (s *Spec) Query(expr string) (string, error) {
	if expr == "" {
		return "", fmt.Errorf("empty query")
	}
	val := s.root.Get(expr)
	if !val.Exists() {
		return "", &NoMatchError{Query: expr}
	}
	return s.render(val), nil
}

// render форматирует значение с учётом лимита.
func (s *Spec) render(val gjson.Result) string {
	var text string
	switch val.Type {
	case gjson.String:
		text = val.String()
	case gjson.JSON:
		text = string(pretty.Ugly([]byte(val.Raw)))
	default:
		text = val.Raw
	}

	if val.IsObject() && utf8.RuneCountInString(text) > s.maxValueLength {
		return LargeDictMessage
	}
	return utils.Truncate(text, s.maxValueLength)
}

// resolve проходит путь от корня.
func (s *Spec) resolve(path string) (gjson.Result, error) {
	val := s.root
	for _, seg := range ParsePath(path) {
		next, err := step(val, seg)
		if err != nil {
			return gjson.Result{}, err
		}
		val = next
	}
	return val, nil
}

// step делает один шаг по сегменту.
//
// Для объекта цифровой сегмент ищется как строковый ключ. При повторяющихся
// ключах побеждает последний, как при обычном декодировании JSON.
func step(val gjson.Result, seg Segment) (gjson.Result, error) {
	switch {
	case val.IsObject():
		var (
			found gjson.Result
			ok    bool
		)
		val.ForEach(func(key, v gjson.Result) bool {
			if key.String() == seg.Key {
				found, ok = v, true
			}
			return true
		})
		if !ok {
			return gjson.Result{}, &KeyError{Key: seg.Key}
		}
		return found, nil

	case val.IsArray():
		if !seg.IsIndex {
			return gjson.Result{}, &TypeError{Msg: "list indices must be integers or slices, not str"}
		}
		var (
			found gjson.Result
			ok    bool
		)
		i := 0
		val.ForEach(func(_, v gjson.Result) bool {
			if i == seg.Index {
				found, ok = v, true
				return false
			}
			i++
			return true
		})
		if !ok {
			return gjson.Result{}, &IndexError{Index: seg.Index}
		}
		return found, nil

	default:
		return gjson.Result{}, &TypeError{Msg: fmt.Sprintf("'%s' object is not subscriptable", typeName(val))}
	}
}

func typeName(val gjson.Result) string {
	switch val.Type {
	case gjson.String:
		return "str"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "bool"
	default:
		return "NoneType"
	}
}
