package session

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/annel0/blockworld/internal/text"
)

// PackState состояние согласования ресурспака
type PackState uint8

const (
	PackIdle PackState = iota
	PackPrompted
	PackAccepted
	PackDeclined
	PackFailedDownload
	PackSuccessfullyLoaded
)

var packStateNames = [...]string{"idle", "prompted", "accepted", "declined", "failed_download", "successfully_loaded"}

// String возвращает имя состояния
func (s PackState) String() string {
	if int(s) < len(packStateNames) {
		return packStateNames[s]
	}
	return fmt.Sprintf("pack_state(%d)", uint8(s))
}

// MarshalText кодирует состояние именем
func (s PackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PackStatus статус, о котором сообщает клиент
type PackStatus uint8

const (
	StatusAccepted PackStatus = iota + 1
	StatusDeclined
	StatusFailedDownload
	StatusSuccessfullyLoaded
)

// String возвращает имя статуса
func (s PackStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusDeclined:
		return "declined"
	case StatusFailedDownload:
		return "failed_download"
	case StatusSuccessfullyLoaded:
		return "successfully_loaded"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ParsePackStatus разбирает статус из строки
func ParsePackStatus(s string) (PackStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accepted":
		return StatusAccepted, nil
	case "declined":
		return StatusDeclined, nil
	case "failed_download", "failed":
		return StatusFailedDownload, nil
	case "successfully_loaded", "loaded":
		return StatusSuccessfullyLoaded, nil
	default:
		return 0, fmt.Errorf("неизвестный статус ресурспака %q", s)
	}
}

// PackOffer предложение ресурспака клиенту
type PackOffer struct {
	URL           string     `json:"url" yaml:"url"`
	SHA1          string     `json:"sha1" yaml:"sha1"`
	Forced        bool       `json:"forced" yaml:"forced"`
	PromptMessage *text.Text `json:"prompt_message,omitempty" yaml:"-"`
}

// Validate проверяет URL и хеш предложения
func (o PackOffer) Validate() error {
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url %q", ErrInvalidOffer, o.URL)
	}
	if len(o.SHA1) != 40 {
		return fmt.Errorf("%w: sha1 должен содержать 40 hex-символов, получено %d", ErrInvalidOffer, len(o.SHA1))
	}
	if _, err := hex.DecodeString(o.SHA1); err != nil {
		return fmt.Errorf("%w: sha1 %q не hex", ErrInvalidOffer, o.SHA1)
	}
	return nil
}

// packTransition допустимый переход и уведомление для клиента
type packTransition struct {
	from   []PackState
	to     PackState
	notice text.Text
}

// packTransitions фиксированная таблица: статус -> переход и уведомление.
// Все статусы принимаются только из Prompted.
var packTransitions = map[PackStatus]packTransition{
	StatusAccepted: {
		from:   []PackState{PackPrompted},
		to:     PackAccepted,
		notice: text.Plain("Resource pack accepted.").WithColor(text.ColorGreen),
	},
	StatusDeclined: {
		from:   []PackState{PackPrompted},
		to:     PackDeclined,
		notice: text.Plain("Resource pack declined.").WithColor(text.ColorRed),
	},
	StatusFailedDownload: {
		from:   []PackState{PackPrompted},
		to:     PackFailedDownload,
		notice: text.Plain("Resource pack failed to download.").WithColor(text.ColorRed),
	},
	StatusSuccessfullyLoaded: {
		from:   []PackState{PackPrompted},
		to:     PackSuccessfullyLoaded,
		notice: text.Plain("Resource pack successfully downloaded.").WithColor(text.ColorBlue),
	},
}

// PackNegotiation конечный автомат согласования ресурспака одной сессии
type PackNegotiation struct {
	state PackState
	offer *PackOffer
}

// State текущее состояние
func (n *PackNegotiation) State() PackState {
	return n.state
}

// Offer последнее выданное предложение
func (n *PackNegotiation) Offer() (PackOffer, bool) {
	if n.offer == nil {
		return PackOffer{}, false
	}
	return *n.offer, true
}

// Prompt переводит автомат в Prompted из любого состояния.
// Новое предложение заменяет предыдущее.
func (n *PackNegotiation) Prompt(offer PackOffer) error {
	if err := offer.Validate(); err != nil {
		return err
	}
	offer.SHA1 = strings.ToLower(offer.SHA1)
	n.offer = &offer
	n.state = PackPrompted
	return nil
}

// Report применяет статус клиента и возвращает ровно одно уведомление.
// Недопустимый статус возвращает ErrUnsolicitedStatus и не меняет состояние.
func (n *PackNegotiation) Report(status PackStatus) (text.Text, error) {
	tr, ok := packTransitions[status]
	if !ok {
		return text.Text{}, fmt.Errorf("%w: неизвестный статус %d", ErrUnsolicitedStatus, uint8(status))
	}

	for _, from := range tr.from {
		if n.state == from {
			n.state = tr.to
			return tr.notice, nil
		}
	}
	return text.Text{}, fmt.Errorf("%w: %s в состоянии %s", ErrUnsolicitedStatus, status, n.state)
}
