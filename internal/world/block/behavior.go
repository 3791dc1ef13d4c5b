package block

import "github.com/annel0/blockworld/internal/nbt"

// BlockBehavior определяет тип блока: имя, допустимые свойства
// и наличие block entity.
type BlockBehavior interface {
	ID() BlockID
	Name() string
	// Properties перечисляет свойства, которые допускает тип
	Properties() []PropName
	// HasBlockEntity true для типов, которые несут документ метаданных
	HasBlockEntity() bool
	// CreateMetadata создаёт документ по умолчанию для нового блока.
	// Для типов без block entity возвращает nil.
	CreateMetadata() nbt.Compound
}
