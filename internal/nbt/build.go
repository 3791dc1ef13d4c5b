package nbt

import "fmt"

// C собирает документ из пар ключ-значение:
//
//	nbt.C("Text1", nbt.String("..."), "Rot", nbt.Int(4))
//
// Паникует при нечётном числе аргументов или нестроковом ключе,
// это ошибка программиста, а не входных данных.
func C(pairs ...interface{}) Compound {
	if len(pairs)%2 != 0 {
		panic("nbt.C: нечётное число аргументов")
	}
	c := make(Compound, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("nbt.C: ключ %v не строка", pairs[i]))
		}
		val, ok := pairs[i+1].(Value)
		if !ok {
			panic(fmt.Sprintf("nbt.C: значение для %q не nbt.Value (%T)", key, pairs[i+1]))
		}
		c[key] = val
	}
	return c
}

// L собирает список из значений
func L(values ...Value) List {
	return List(values)
}
