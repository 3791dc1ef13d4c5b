package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/vec"
)

// GameMode режим игры клиента
type GameMode uint8

const (
	Survival GameMode = iota
	Creative
	Adventure
	Spectator
)

var gameModeNames = [...]string{"survival", "creative", "adventure", "spectator"}

// String возвращает имя режима
func (m GameMode) String() string {
	if int(m) < len(gameModeNames) {
		return gameModeNames[m]
	}
	return fmt.Sprintf("gamemode(%d)", uint8(m))
}

// MarshalText кодирует режим именем
func (m GameMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseGameMode разбирает режим из строки конфигурации
func ParseGameMode(s string) (GameMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range gameModeNames {
		if n == name {
			return GameMode(i), nil
		}
	}
	return Survival, fmt.Errorf("неизвестный режим игры %q", s)
}

// Look углы обзора в градусах
type Look struct {
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// Transform положение клиента в инстансе
type Transform struct {
	Position vec.Vec3Float `json:"position"`
	Look     Look          `json:"look"`
}

// TexturesProperty имя свойства профиля со ссылкой на скин
const TexturesProperty = "textures"

// Property свойство профиля игрока (например, textures)
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// Session состояние одного подключённого клиента.
// Поля меняет только тик сервера.
type Session struct {
	ID          uuid.UUID
	Username    string
	Properties  []Property
	InstanceKey string // ключ инстанса в world.Registry, не владение
	Transform   Transform
	GameMode    GameMode
	ConnectedAt time.Time

	ResourcePack PackNegotiation
}

// New создаёт сессию только что подключившегося клиента
func New(id uuid.UUID, username string, properties []Property) *Session {
	props := make([]Property, len(properties))
	copy(props, properties)

	return &Session{
		ID:          id,
		Username:    username,
		Properties:  props,
		GameMode:    Survival,
		ConnectedAt: time.Now(),
	}
}

// Property возвращает свойство профиля по имени
func (s *Session) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Textures возвращает непустое свойство textures
func (s *Session) Textures() (Property, bool) {
	p, ok := s.Property(TexturesProperty)
	if !ok || p.Value == "" {
		return Property{}, false
	}
	return p, true
}

// Info снимок сессии для чтения вне тика (admin API)
type Info struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Instance     string    `json:"instance"`
	Transform    Transform `json:"transform"`
	GameMode     GameMode  `json:"game_mode"`
	ResourcePack PackState `json:"resource_pack"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// Snapshot копирует публичные поля сессии
func (s *Session) Snapshot() Info {
	return Info{
		ID:           s.ID,
		Username:     s.Username,
		Instance:     s.InstanceKey,
		Transform:    s.Transform,
		GameMode:     s.GameMode,
		ResourcePack: s.ResourcePack.State(),
		ConnectedAt:  s.ConnectedAt,
	}
}
