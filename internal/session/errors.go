package session

import "errors"

var (
	// ErrSessionNotFound сессия не найдена (клиент мог отключиться посреди тика)
	ErrSessionNotFound = errors.New("сессия не найдена")

	// ErrDuplicateSession сессия с таким ID уже подключена
	ErrDuplicateSession = errors.New("сессия уже существует")

	// ErrUnsolicitedStatus статус ресурспака без подходящего предложения
	ErrUnsolicitedStatus = errors.New("непрошенный статус ресурспака")

	// ErrInvalidOffer некорректное предложение ресурспака
	ErrInvalidOffer = errors.New("некорректное предложение ресурспака")
)
