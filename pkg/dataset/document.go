package dataset

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"
)

// Document — загруженный датасет.
//
// Raw хранится как есть: jsonspec обходит его без повторной сериализации.
// Документ только читается.
type Document struct {
	Raw       []byte
	Source    string
	FetchedAt time.Time
}

// NewDocument оборачивает готовые байты (например, файл) в Document.
func NewDocument(raw []byte, source string) (*Document, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s: %w", source, ErrInvalidJSON)
	}
	return &Document{Raw: raw, Source: source, FetchedAt: time.Now()}, nil
}

// FeatureCollection — нестрогий взгляд на GeoJSON ответ WFS.
// Geometry не декодируется.
type FeatureCollection struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	TotalFeatures  int       `json:"totalFeatures"`
	NumberReturned int       `json:"numberReturned"`
}

// Feature — одна запись датасета.
// ID бывает строкой или числом в зависимости от сервера.
type Feature struct {
	ID         any            `json:"id"`
	Properties map[string]any `json:"properties"`
}

// HasFeatures сообщает, что корень — объект с массивом features.
func (d *Document) HasFeatures() bool {
	return gjson.GetBytes(d.Raw, "features").IsArray()
}

// FeatureCount возвращает длину массива features (0, если его нет).
func (d *Document) FeatureCount() int {
	features := gjson.GetBytes(d.Raw, "features")
	if !features.IsArray() {
		return 0
	}
	return int(gjson.GetBytes(d.Raw, "features.#").Int())
}

// Features декодирует документ в FeatureCollection.
func (d *Document) Features() (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(d.Raw, &fc); err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return &fc, nil
}

// Greenery — маппинг "название района → среднее значение".
type Greenery struct {
	Values  map[string]float64
	Skipped int // Записи без имени или без числового значения
}

// Names возвращает отсортированные имена районов.
func (g *Greenery) Names() []string {
	names := make([]string, 0, len(g.Values))
	for name := range g.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup возвращает значение для района.
func (g *Greenery) Lookup(name string) (float64, bool) {
	v, ok := g.Values[name]
	return v, ok
}

// Greenery строит маппинг nameKey → valueKey по features[*].properties.
//
// Повторяющиеся имена: побеждает последнее вхождение.
// Записи без nameKey, с пустым именем или нечисловым значением пропускаются
// и учитываются в Skipped.
func (d *Document) Greenery(nameKey, valueKey string) (*Greenery, error) {
	features := gjson.GetBytes(d.Raw, "features")
	if !features.IsArray() {
		return nil, fmt.Errorf("document has no features array")
	}

	g := &Greenery{Values: make(map[string]float64)}

	features.ForEach(func(_, feature gjson.Result) bool {
		name, value, ok := extractPair(feature.Get("properties"), nameKey, valueKey)
		if !ok {
			g.Skipped++
			return true
		}
		g.Values[name] = value
		return true
	})

	return g, nil
}

// extractPair ищет ключи перебором: имена свойств могут содержать символы,
// которые gjson трактует как синтаксис пути.
func extractPair(props gjson.Result, nameKey, valueKey string) (string, float64, bool) {
	if !props.IsObject() {
		return "", 0, false
	}

	var (
		name     string
		value    float64
		hasName  bool
		hasValue bool
	)
	props.ForEach(func(key, val gjson.Result) bool {
		switch key.String() {
		case nameKey:
			if val.Type == gjson.String && val.String() != "" {
				name, hasName = val.String(), true
			}
		case valueKey:
			if val.Type == gjson.Number {
				value, hasValue = val.Float(), true
			}
		}
		return true
	})

	return name, value, hasName && hasValue
}
