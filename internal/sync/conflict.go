package sync

import "time"

// Stamp время и узел последней записи позиции в зеркале
type Stamp struct {
	At     time.Time
	Source string
}

// ConflictResolver решает, заменяет ли удалённая запись уже принятую.
// Нужен, когда в одно зеркало реплицируют несколько узлов.
type ConflictResolver interface {
	Accept(local, remote Stamp) bool
}

// LWWResolver реализует Last-Write-Wins: побеждает более поздняя запись,
// при равном времени побеждает больший Source.
type LWWResolver struct{}

// Accept реализует ConflictResolver
func (LWWResolver) Accept(local, remote Stamp) bool {
	if remote.At.Equal(local.At) {
		return remote.Source >= local.Source
	}
	return remote.At.After(local.At)
}
