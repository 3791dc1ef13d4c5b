package router

import (
	"fmt"

	"github.com/annel0/blockworld/internal/nbt"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/world"
)

// Ключи документа таблички. Строки хранят JSON text component.
const (
	SignText1 = "Text1"
	SignText2 = "Text2"
	SignText3 = "Text3"
	SignText4 = "Text4"
)

// SignBoard пишет последнее сообщение чата и подпись автора в табличку
type SignBoard struct {
	Pos world.BlockPos
}

// OnChat записывает Text2 = сообщение, Text3 = ~имя.
// Табличка должна уже стоять: без документа событие отбрасывается.
func (b SignBoard) OnChat(scope Scope, message string) error {
	doc, ok := scope.Instance.BlockEntityMut(b.Pos)
	if !ok {
		return fmt.Errorf("%w: нет таблички в %s", ErrTargetGone, b.Pos)
	}

	doc.Set(SignText2, nbt.String(text.Plain(message).WithColor(text.ColorDarkGreen).JSON()))
	doc.Set(SignText3, nbt.String(text.Plain("~"+scope.Session.Username).Italicized().JSON()))
	return nil
}

// SkullOwnerDoc собирает документ головы игрока с владельцем скина
func SkullOwnerDoc(s *session.Session, textures string) nbt.Compound {
	return nbt.C(
		"SkullOwner", nbt.C(
			"Id", nbt.String(s.ID.String()),
			"Properties", nbt.C(
				session.TexturesProperty, nbt.L(nbt.C("Value", nbt.String(textures))),
			),
		),
	)
}

// SkullOwner заменяет документ головы скином взаимодействующего игрока
type SkullOwner struct{}

// Interact без свойства textures ничего не делает
func (SkullOwner) Interact(scope Scope, ev BlockInteract) error {
	textures, ok := scope.Session.Textures()
	if !ok {
		return nil
	}
	return scope.Instance.ReplaceBlockEntity(ev.Position, SkullOwnerDoc(scope.Session, textures.Value))
}

// PackPrompter предлагает ресурспак взаимодействующему игроку
type PackPrompter struct {
	Offer session.PackOffer
}

// Interact переводит согласование в Prompted и ставит запрос в очередь
func (p PackPrompter) Interact(scope Scope, ev BlockInteract) error {
	return PromptPack(scope.Session, scope.Outbox, p.Offer)
}

// PromptPack предлагает ресурспак сессии и кладёт запрос в outbox
func PromptPack(s *session.Session, outbox *Outbox, offer session.PackOffer) error {
	if err := s.ResourcePack.Prompt(offer); err != nil {
		return err
	}
	current, _ := s.ResourcePack.Offer()
	outbox.Push(ResourcePackPrompt{
		Target:        s.ID,
		URL:           current.URL,
		SHA1:          current.SHA1,
		Forced:        current.Forced,
		PromptMessage: current.PromptMessage,
	})
	return nil
}
