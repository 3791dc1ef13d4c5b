// Package nbt реализует документ метаданных блока (block entity).
// Набор типов значений закрыт: String, Int, List и Compound.
// Другие типы не могут реализовать Value, потому что у интерфейса
// есть неэкспортируемый метод.
package nbt

import (
	"fmt"
	"sort"
)

// Kind тип значения документа
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindList
	KindCompound
)

// String возвращает имя типа
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindList:
		return "list"
	case KindCompound:
		return "compound"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value значение в документе
type Value interface {
	Kind() Kind
	clone() Value
	equal(other Value) bool
}

// String строковое значение
type String string

// Int целочисленное значение
type Int int64

// List упорядоченный список значений
type List []Value

// Compound вложенный документ: ключ -> значение
type Compound map[string]Value

func (String) Kind() Kind   { return KindString }
func (Int) Kind() Kind      { return KindInt }
func (List) Kind() Kind     { return KindList }
func (Compound) Kind() Kind { return KindCompound }

func (s String) clone() Value { return s }
func (i Int) clone() Value    { return i }

func (l List) clone() Value { return l.Clone() }

func (c Compound) clone() Value { return c.Clone() }

func (s String) equal(other Value) bool {
	o, ok := other.(String)
	return ok && o == s
}

func (i Int) equal(other Value) bool {
	o, ok := other.(Int)
	return ok && o == i
}

func (l List) equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(o) != len(l) {
		return false
	}
	for i := range l {
		if !Equal(l[i], o[i]) {
			return false
		}
	}
	return true
}

func (c Compound) equal(other Value) bool {
	o, ok := other.(Compound)
	if !ok {
		return false
	}
	return c.Equal(o)
}

// Equal сравнивает два значения структурно
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.equal(b)
}

// Clone глубокая копия списка
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, v := range l {
		if v != nil {
			out[i] = v.clone()
		}
	}
	return out
}

// NewCompound создаёт пустой документ
func NewCompound() Compound {
	return make(Compound)
}

// Clone глубокая копия документа
func (c Compound) Clone() Compound {
	out := make(Compound, len(c))
	for k, v := range c {
		if v != nil {
			out[k] = v.clone()
		}
	}
	return out
}

// Equal сравнивает документы структурно
func (c Compound) Equal(o Compound) bool {
	if len(c) != len(o) {
		return false
	}
	for k, v := range c {
		ov, ok := o[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Set записывает значение по ключу (вставка или замена)
func (c Compound) Set(key string, v Value) {
	c[key] = v
}

// Delete удаляет ключ
func (c Compound) Delete(key string) {
	delete(c, key)
}

// Get возвращает значение по ключу
func (c Compound) Get(key string) (Value, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString возвращает строку по ключу
func (c Compound) GetString(key string) (string, bool) {
	v, ok := c[key].(String)
	return string(v), ok
}

// GetInt возвращает целое по ключу
func (c Compound) GetInt(key string) (int64, bool) {
	v, ok := c[key].(Int)
	return int64(v), ok
}

// GetCompound возвращает вложенный документ по ключу
func (c Compound) GetCompound(key string) (Compound, bool) {
	v, ok := c[key].(Compound)
	return v, ok
}

// GetList возвращает список по ключу
func (c Compound) GetList(key string) (List, bool) {
	v, ok := c[key].(List)
	return v, ok
}

// Keys возвращает ключи в отсортированном порядке
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
