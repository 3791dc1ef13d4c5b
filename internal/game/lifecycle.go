package game

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/blockworld/internal/router"
	"github.com/annel0/blockworld/internal/session"
	"github.com/annel0/blockworld/internal/storage"
	"github.com/annel0/blockworld/internal/text"
	"github.com/annel0/blockworld/internal/vec"
)

// Spawn начальное состояние новой сессии
type Spawn struct {
	Position vec.Vec3Float
	Look     session.Look
	GameMode session.GameMode
	Welcome  string // Подсказка в чат при входе, пусто: без подсказки
}

// DefaultSpawn точка появления по умолчанию
func DefaultSpawn() Spawn {
	return Spawn{
		Position: vec.Vec3Float{X: 1.5, Y: 65, Z: 1.5},
		Look:     session.Look{Yaw: -90, Pitch: 0},
		GameMode: session.Creative,
	}
}

// SessionConnected клиент прошёл аутентификацию транспорта
type SessionConnected struct {
	ID         uuid.UUID
	Username   string
	Properties []session.Property
}

type lifecycleOp struct {
	connect    *SessionConnected
	disconnect uuid.UUID
}

// Connect ставит подключение в очередь следующего тика
func (s *Server) Connect(ev SessionConnected) {
	s.queueMu.Lock()
	s.lifecycle = append(s.lifecycle, lifecycleOp{connect: &ev})
	s.queueMu.Unlock()
}

// Disconnect ставит отключение в очередь. Сессия удаляется в начале
// следующего тика, до обработки событий.
func (s *Server) Disconnect(id uuid.UUID) {
	s.queueMu.Lock()
	s.lifecycle = append(s.lifecycle, lifecycleOp{disconnect: id})
	s.queueMu.Unlock()
}

// loadTransforms читает сохранённые положения подключающихся сессий
func (s *Server) loadTransforms(ctx context.Context, ops []lifecycleOp) map[uuid.UUID]storage.TransformRecord {
	if s.cfg.Transforms == nil {
		return nil
	}

	restored := make(map[uuid.UUID]storage.TransformRecord)
	for _, op := range ops {
		if op.connect == nil {
			continue
		}
		lctx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
		rec, found, err := s.cfg.Transforms.Load(lctx, op.connect.ID)
		cancel()
		if err != nil {
			s.logger.Warn("не удалось загрузить положение %s: %v", op.connect.Username, err)
			continue
		}
		if found {
			restored[op.connect.ID] = rec
		}
	}
	return restored
}

// applyLifecycle применяет подключения и отключения в порядке поступления.
// Возвращает положения отключившихся сессий для сохранения.
func (s *Server) applyLifecycle(ops []lifecycleOp, restored map[uuid.UUID]storage.TransformRecord, report *TickReport) map[uuid.UUID]storage.TransformRecord {
	saved := make(map[uuid.UUID]storage.TransformRecord)

	for _, op := range ops {
		if op.connect == nil {
			sess, err := s.sessions.Remove(op.disconnect)
			if err != nil {
				s.logger.Debug("отключение неизвестной сессии %s", op.disconnect)
				continue
			}
			saved[sess.ID] = recordOf(sess)
			report.Disconnected++
			s.logger.Info("👋 %s отключился", sess.Username)
			continue
		}

		sess := s.initSession(*op.connect, restored)
		if err := s.sessions.Add(sess); err != nil {
			s.logger.Warn("⚠️ Подключение %s отклонено: %v", op.connect.Username, err)
			continue
		}
		delete(saved, sess.ID)
		if welcome := s.cfg.Spawn.Welcome; welcome != "" {
			s.outbox.Push(router.Chat{Target: sess.ID, Message: text.Plain(welcome).Italicized()})
		}
		report.Connected++
		s.logger.Info("🎮 %s подключился к %s", sess.Username, sess.InstanceKey)
	}
	return saved
}

// initSession создаёт сессию в точке появления или в сохранённом положении
func (s *Server) initSession(ev SessionConnected, restored map[uuid.UUID]storage.TransformRecord) *session.Session {
	spawn := s.cfg.Spawn
	sess := session.New(ev.ID, ev.Username, ev.Properties)
	sess.InstanceKey = s.instance.Name()
	sess.GameMode = spawn.GameMode
	sess.Transform = session.Transform{Position: spawn.Position, Look: spawn.Look}

	if rec, ok := restored[ev.ID]; ok && rec.Instance == s.instance.Name() {
		sess.Transform = session.Transform{
			Position: rec.Position,
			Look:     session.Look{Yaw: rec.Yaw, Pitch: rec.Pitch},
		}
		s.logger.Debug("положение %s восстановлено: %+v", ev.Username, rec.Position)
	}

	return sess
}

// recordOf снимок положения для хранилища
func recordOf(sess *session.Session) storage.TransformRecord {
	return storage.TransformRecord{
		Instance:  sess.InstanceKey,
		Position:  sess.Transform.Position,
		Yaw:       sess.Transform.Look.Yaw,
		Pitch:     sess.Transform.Look.Pitch,
		UpdatedAt: time.Now().UTC(),
	}
}

// saveTransforms сохраняет положения одной пачкой
func (s *Server) saveTransforms(records map[uuid.UUID]storage.TransformRecord) {
	if s.cfg.Transforms == nil || len(records) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StorageTimeout)
	defer cancel()
	if err := s.cfg.Transforms.BatchSave(ctx, records); err != nil {
		s.logger.Warn("не удалось сохранить положения (%d): %v", len(records), err)
	}
}
