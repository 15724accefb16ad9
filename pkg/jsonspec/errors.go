package jsonspec

import "fmt"

// Ошибки поиска по пути. Их текст уходит модели как результат инструмента,
// поэтому формат короткий и узнаваемый: "KeyError: 'x'".

// KeyError — в объекте нет ключа.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("KeyError: '%s'", e.Key)
}

// IndexError — индекс за пределами массива.
type IndexError struct {
	Index int
}

func (e *IndexError) Error() string {
	return "IndexError: list index out of range"
}

// TypeError — шаг пути не применим к значению (ключ у массива, индекс у числа).
type TypeError struct {
	Msg string
}

func (e *TypeError) Error() string {
	return "TypeError: " + e.Msg
}

// NotObjectError — Keys вызван для значения, которое не объект.
type NotObjectError struct {
	Path string
}

func (e *NotObjectError) Error() string {
	return fmt.Sprintf("Value at path `%s` is not a dict, get the value directly.", e.Path)
}

// NoMatchError — gjson запрос ничего не нашёл.
type NoMatchError struct {
	Query string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("No value matches query `%s`", e.Query)
}
