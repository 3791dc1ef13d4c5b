package nbt

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON кодирует документ естественным JSON:
// строки, целые числа, массивы и объекты.
func (c Compound) MarshalJSON() ([]byte, error) {
	return json.Marshal(toPlain(c))
}

// UnmarshalJSON декодирует документ. Дробные числа, булевы значения и null
// не поддерживаются: в документах block entity их нет.
func (c *Compound) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := make(Compound, len(raw))
	for k, v := range raw {
		val, err := fromPlain(v)
		if err != nil {
			return fmt.Errorf("ключ %q: %w", k, err)
		}
		out[k] = val
	}
	*c = out
	return nil
}

func toPlain(v Value) interface{} {
	switch t := v.(type) {
	case String:
		return string(t)
	case Int:
		return int64(t)
	case List:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = toPlain(e)
		}
		return out
	case Compound:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = toPlain(e)
		}
		return out
	default:
		return nil
	}
}

func fromPlain(v interface{}) (Value, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return nil, fmt.Errorf("поддерживаются только целые числа: %w", err)
		}
		return Int(i), nil
	case []interface{}:
		out := make(List, len(t))
		for i, e := range t {
			val, err := fromPlain(e)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case map[string]interface{}:
		out := make(Compound, len(t))
		for k, e := range t {
			val, err := fromPlain(e)
			if err != nil {
				return nil, fmt.Errorf("ключ %q: %w", k, err)
			}
			out[k] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("неподдерживаемый тип %T", v)
	}
}
