package block

import (
	"fmt"
	"strconv"
)

// PropName имя свойства состояния блока
type PropName uint8

const (
	PropFacing PropName = iota + 1
	PropRotation
)

// String возвращает имя свойства
func (p PropName) String() string {
	switch p {
	case PropFacing:
		return "facing"
	case PropRotation:
		return "rotation"
	default:
		return fmt.Sprintf("prop(%d)", uint8(p))
	}
}

// Значения свойства facing
const (
	FacingNorth uint8 = iota
	FacingSouth
	FacingWest
	FacingEast
)

var facingNames = [...]string{"north", "south", "west", "east"}

// Раскладка свойств в поле props:
// биты 0-3 rotation (0..15), биты 4-5 facing (0..3).
const (
	rotationShift = 0
	rotationMask  = 0xF
	facingShift   = 4
	facingMask    = 0x3
)

func propLayout(p PropName) (shift uint16, mask uint16, max uint8, ok bool) {
	switch p {
	case PropRotation:
		return rotationShift, rotationMask, 15, true
	case PropFacing:
		return facingShift, facingMask, 3, true
	default:
		return 0, 0, 0, false
	}
}

func formatPropValue(p PropName, v uint8) string {
	if p == PropFacing && int(v) < len(facingNames) {
		return facingNames[v]
	}
	return fmt.Sprintf("%d", v)
}

// parsePropValue обратная операция к formatPropValue
func parsePropValue(p PropName, raw string) (uint8, error) {
	if p == PropFacing {
		for i, name := range facingNames {
			if name == raw {
				return uint8(i), nil
			}
		}
		return 0, fmt.Errorf("неизвестное значение facing %q", raw)
	}
	v, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("значение %s=%q: %w", p, raw, err)
	}
	return uint8(v), nil
}

// propByName ищет свойство по имени
func propByName(name string) (PropName, bool) {
	for _, p := range []PropName{PropFacing, PropRotation} {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}
