// Package text описывает стилизованный текст для чата и табличек.
// Сериализуется как JSON text component: {"text":"...","color":"red","italic":true}.
package text

import (
	"encoding/json"
	"fmt"
)

// Color именованный цвет текста
type Color string

const (
	ColorDefault   Color = ""
	ColorRed       Color = "red"
	ColorGreen     Color = "green"
	ColorDarkGreen Color = "dark_green"
	ColorBlue      Color = "blue"
	ColorGray      Color = "gray"
	ColorYellow    Color = "yellow"
)

// Text неизменяемый фрагмент текста со стилем
type Text struct {
	Content string `json:"text"`
	Color   Color  `json:"color,omitempty"`
	Italic  bool   `json:"italic,omitempty"`
}

// Plain создаёт текст без стиля
func Plain(content string) Text {
	return Text{Content: content}
}

// Plainf создаёт текст без стиля через fmt.Sprintf
func Plainf(format string, args ...interface{}) Text {
	return Text{Content: fmt.Sprintf(format, args...)}
}

// WithColor возвращает копию текста с цветом
func (t Text) WithColor(c Color) Text {
	t.Color = c
	return t
}

// Italicized возвращает копию текста курсивом
func (t Text) Italicized() Text {
	t.Italic = true
	return t
}

// String возвращает текст без стиля
func (t Text) String() string {
	return t.Content
}

// JSON возвращает JSON-представление компонента.
// Ошибка невозможна для этой структуры, поэтому она не возвращается.
func (t Text) JSON() string {
	data, _ := json.Marshal(t)
	return string(data)
}

// Parse разбирает JSON text component
func Parse(raw string) (Text, error) {
	var t Text
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return Text{}, fmt.Errorf("некорректный text component: %w", err)
	}
	return t, nil
}
