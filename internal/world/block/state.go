package block

import (
	"fmt"
	"strings"

	"github.com/annel0/blockworld/internal/nbt"
)

// BlockState неизменяемое состояние блока: тип + набор свойств.
// Сравнивается через ==. Нулевое значение: воздух.
type BlockState struct {
	id    BlockID
	props uint16
}

// State возвращает состояние типа id со свойствами по умолчанию
func State(id BlockID) BlockState {
	return BlockState{id: id}
}

// Часто используемые состояния
var (
	Air           = State(AirBlockID)
	Stone         = State(StoneBlockID)
	Grass         = State(GrassBlockID)
	Dirt          = State(DirtBlockID)
	Bedrock       = State(BedrockBlockID)
	WhiteConcrete = State(WhiteConcreteBlockID)
	Chest         = State(ChestBlockID)
	OakSign       = State(OakSignBlockID)
	PlayerHead    = State(PlayerHeadBlockID)
)

// ID возвращает тип блока
func (s BlockState) ID() BlockID {
	return s.id
}

// IsAir true для воздуха
func (s BlockState) IsAir() bool {
	return s.id == AirBlockID
}

// Set возвращает новое состояние с изменённым свойством.
// Если тип не объявляет свойство или значение вне диапазона,
// состояние возвращается без изменений.
func (s BlockState) Set(name PropName, value uint8) BlockState {
	if !s.supports(name) {
		return s
	}
	shift, mask, max, _ := propLayout(name)
	if value > max {
		return s
	}
	s.props = (s.props &^ (mask << shift)) | (uint16(value) << shift)
	return s
}

// Get возвращает значение свойства, если тип его объявляет
func (s BlockState) Get(name PropName) (uint8, bool) {
	if !s.supports(name) {
		return 0, false
	}
	shift, mask, _, _ := propLayout(name)
	return uint8((s.props >> shift) & mask), true
}

// HasBlockEntity true, если блок этого типа несёт block entity
func (s BlockState) HasBlockEntity() bool {
	behavior, ok := Get(s.id)
	return ok && behavior.HasBlockEntity()
}

// DefaultBlockEntity возвращает документ по умолчанию для типа
// (nil для типов без block entity)
func (s BlockState) DefaultBlockEntity() nbt.Compound {
	behavior, ok := Get(s.id)
	if !ok || !behavior.HasBlockEntity() {
		return nil
	}
	doc := behavior.CreateMetadata()
	if doc == nil {
		doc = nbt.NewCompound()
	}
	return doc
}

// Name возвращает имя типа блока
func (s BlockState) Name() string {
	if behavior, ok := Get(s.id); ok {
		return behavior.Name()
	}
	return "unknown"
}

// String форматирует состояние как minecraft:oak_sign[rotation=4]
func (s BlockState) String() string {
	behavior, ok := Get(s.id)
	if !ok {
		return "unknown"
	}

	props := behavior.Properties()
	if len(props) == 0 {
		return behavior.Name()
	}

	var b strings.Builder
	b.WriteString(behavior.Name())
	b.WriteByte('[')
	for i, p := range props {
		if i > 0 {
			b.WriteByte(',')
		}
		v, _ := s.Get(p)
		b.WriteString(p.String())
		b.WriteByte('=')
		b.WriteString(formatPropValue(p, v))
	}
	b.WriteByte(']')
	return b.String()
}

func (s BlockState) supports(name PropName) bool {
	behavior, ok := Get(s.id)
	if !ok {
		return false
	}
	for _, p := range behavior.Properties() {
		if p == name {
			return true
		}
	}
	return false
}

// MarshalText кодирует состояние его строковым представлением
func (s BlockState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState разбирает строку вида minecraft:chest[facing=west].
// Свойства, которые тип не объявляет, это ошибка.
func ParseState(raw string) (BlockState, error) {
	name, rest, hasProps := strings.Cut(strings.TrimSpace(raw), "[")
	id, ok := ByName(name)
	if !ok {
		return Air, fmt.Errorf("неизвестный блок %q", name)
	}
	state := State(id)
	if !hasProps {
		return state, nil
	}

	body, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return Air, fmt.Errorf("незакрытый список свойств в %q", raw)
	}
	for _, pair := range strings.Split(body, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return Air, fmt.Errorf("свойство без значения %q", pair)
		}
		prop, ok := propByName(strings.TrimSpace(key))
		if !ok || !state.supports(prop) {
			return Air, fmt.Errorf("%s не поддерживает свойство %q", name, key)
		}
		v, err := parsePropValue(prop, strings.TrimSpace(val))
		if err != nil {
			return Air, err
		}
		next := state.Set(prop, v)
		if got, _ := next.Get(prop); got != v {
			return Air, fmt.Errorf("значение %s=%d вне диапазона", prop, v)
		}
		state = next
	}
	return state, nil
}

// UnmarshalText разбирает состояние из строкового представления
func (s *BlockState) UnmarshalText(data []byte) error {
	parsed, err := ParseState(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
