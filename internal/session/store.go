package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rebase/internal/apperr"
	"rebase/internal/discovery"
	"rebase/internal/phase"
)

// Context is the persisted state of one session as the orchestrator
// sees it.
type Context struct {
	SessionID      string
	UserID         *uint
	DomainType     string
	Phase          phase.Phase
	InitialMessage string
	Metrics        map[string]any
	History        []discovery.Turn
	CreatedAt      time.Time
	UpdatedAt      time.Time

	facts []byte
}

// Facts decodes the persisted discovery data. An empty record yields a
// fresh model.
func (c *Context) Facts() (*discovery.CollectedBusinessData, error) {
	return discovery.LoadCollectedBusinessData(c.facts)
}

// Update carries the fields UpdateContext may change. Nil or empty
// members are left as they are.
type Update struct {
	Phase      *phase.Phase
	Facts      *discovery.CollectedBusinessData
	Metrics    map[string]any
	DomainType string
}

// Store is the gorm-backed session store.
type Store struct {
	db  *gorm.DB
	ids *messageIDs
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, ids: newMessageIDs(), now: time.Now}
}

// CreateSession opens a new session in the discovery phase with empty
// discovered facts.
func (s *Store) CreateSession(ctx context.Context, initialMessage string, userID *uint, domainType string) (string, error) {
	facts, err := json.Marshal(discovery.NewCollectedBusinessData())
	if err != nil {
		return "", fmt.Errorf("encode facts: %w", err)
	}
	now := s.now()
	sess := Session{
		ID:              newSessionID(),
		UserID:          userID,
		DomainType:      domainType,
		Phase:           string(phase.Discovery),
		InitialMessage:  initialMessage,
		DiscoveredFacts: datatypes.JSON(facts),
		BusinessMetrics: datatypes.JSON("{}"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return sess.ID, nil
}

// GetContext loads a session and its message history in append order.
func (s *Store) GetContext(ctx context.Context, id string) (*Context, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	p, ok := phase.Parse(sess.Phase)
	if !ok {
		p = phase.Discovery
	}
	metrics := map[string]any{}
	if len(sess.BusinessMetrics) > 0 {
		if err := json.Unmarshal(sess.BusinessMetrics, &metrics); err != nil {
			return nil, fmt.Errorf("decode business metrics for %s: %w", id, err)
		}
	}
	history := make([]discovery.Turn, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		history = append(history, discovery.Turn{Role: m.Role, Content: m.Content})
	}

	return &Context{
		SessionID:      sess.ID,
		UserID:         sess.UserID,
		DomainType:     sess.DomainType,
		Phase:          p,
		InitialMessage: sess.InitialMessage,
		Metrics:        metrics,
		History:        history,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
		facts:          sess.DiscoveredFacts,
	}, nil
}

// AddMessage appends one message to a session.
func (s *Store) AddMessage(ctx context.Context, id, role, content string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.touch(tx, id, map[string]any{}); err != nil {
			return err
		}
		return s.appendMessages(tx, id, []discovery.Turn{{Role: role, Content: content}})
	})
}

// UpdateContext writes phase, facts, metrics and domain in one transaction.
func (s *Store) UpdateContext(ctx context.Context, id string, u Update) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields, err := u.columns()
		if err != nil {
			return err
		}
		return s.touch(tx, id, fields)
	})
}

// CommitTurn persists the messages of a turn together with the resulting
// session update. Either all of it is written or none.
func (s *Store) CommitTurn(ctx context.Context, id string, messages []discovery.Turn, u Update) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields, err := u.columns()
		if err != nil {
			return err
		}
		if err := s.touch(tx, id, fields); err != nil {
			return err
		}
		return s.appendMessages(tx, id, messages)
	})
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("delete messages of %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&Session{})
		if res.Error != nil {
			return fmt.Errorf("delete session %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NewNotFound("session", id)
		}
		return nil
	})
}

// DeleteExpired removes a session only if it has not been updated since
// before. It reports whether the session was deleted.
func (s *Store) DeleteExpired(ctx context.Context, id string, before time.Time) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND updated_at < ?", id, before).Delete(&Session{})
		if res.Error != nil {
			return fmt.Errorf("delete session %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Where("session_id = ?", id).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("delete messages of %s: %w", id, err)
		}
		return nil
	})
	return deleted && err == nil, err
}

// Expired reports whether a session exists and has not been updated
// since before.
func (s *Store) Expired(ctx context.Context, id string, before time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND updated_at < ?", id, before).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", id, err)
	}
	return n > 0, nil
}

// ListSessions returns the most recently updated sessions first. A nil
// userID lists every session; limit <= 0 means no limit.
func (s *Store) ListSessions(ctx context.Context, userID *uint, limit int) ([]Session, error) {
	q := s.db.WithContext(ctx).Model(&Session{}).Order("updated_at DESC")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Session
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return rows, nil
}

// ListExpired returns the ids of sessions not updated since before.
func (s *Store) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Session{}).
		Where("updated_at < ?", before).
		Order("updated_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	return ids, nil
}

type snapshot struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// Snapshot renders a session with all its messages as JSON.
func (s *Store) Snapshot(ctx context.Context, id string) ([]byte, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return json.Marshal(snapshot{Session: sess, Messages: sess.Messages})
}

func (u Update) columns() (map[string]any, error) {
	fields := map[string]any{}
	if u.Phase != nil {
		if *u.Phase == phase.Error {
			return nil, errors.New("the error phase is never persisted")
		}
		fields["phase"] = string(*u.Phase)
	}
	if u.Facts != nil {
		raw, err := json.Marshal(u.Facts)
		if err != nil {
			return nil, fmt.Errorf("encode facts: %w", err)
		}
		fields["discovered_facts"] = datatypes.JSON(raw)
	}
	if u.Metrics != nil {
		raw, err := json.Marshal(u.Metrics)
		if err != nil {
			return nil, fmt.Errorf("encode business metrics: %w", err)
		}
		fields["business_metrics"] = datatypes.JSON(raw)
	}
	if u.DomainType != "" {
		fields["domain_type"] = u.DomainType
	}
	return fields, nil
}

func (s *Store) touch(tx *gorm.DB, id string, fields map[string]any) error {
	fields["updated_at"] = s.now()
	res := tx.Model(&Session{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update session %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("session", id)
	}
	return nil
}

func (s *Store) appendMessages(tx *gorm.DB, id string, turns []discovery.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	now := s.now()
	rows := make([]Message, 0, len(turns))
	for _, t := range turns {
		rows = append(rows, Message{
			ID:        s.ids.next(now),
			SessionID: id,
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: now,
		})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("append messages to %s: %w", id, err)
	}
	return nil
}
