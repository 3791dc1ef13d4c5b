package vec

// FloorDiv делит a на b с округлением вниз (а не к нулю, как оператор /).
// FloorDiv(-1, 16) == -1, тогда как -1/16 == 0.
func FloorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток для положительного b.
// FloorMod(-1, 16) == 15.
func FloorMod(a, b int32) int32 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}
