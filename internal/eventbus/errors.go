package eventbus

import "errors"

// ErrBusClosed шина закрыта
var ErrBusClosed = errors.New("шина событий закрыта")

// ErrDropped событие низкого приоритета отброшено: буфер шины заполнен
var ErrDropped = errors.New("буфер шины заполнен, событие отброшено")
