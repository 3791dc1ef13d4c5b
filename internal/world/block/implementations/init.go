package implementations

import "github.com/annel0/blockworld/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	// Базовые блоки
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.StoneBlockID, NewSolidBehavior(block.StoneBlockID, "minecraft:stone"))
	block.Register(block.GrassBlockID, NewSolidBehavior(block.GrassBlockID, "minecraft:grass_block"))
	block.Register(block.DirtBlockID, NewSolidBehavior(block.DirtBlockID, "minecraft:dirt"))
	block.Register(block.BedrockBlockID, NewSolidBehavior(block.BedrockBlockID, "minecraft:bedrock"))
	block.Register(block.WhiteConcreteBlockID, NewSolidBehavior(block.WhiteConcreteBlockID, "minecraft:white_concrete"))

	// Блоки с block entity
	block.Register(block.ChestBlockID, &ChestBehavior{})
	block.Register(block.OakSignBlockID, &SignBehavior{})
	block.Register(block.PlayerHeadBlockID, &PlayerHeadBehavior{})
}
