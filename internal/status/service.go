package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jobtrack/internal/database"
)

var (
	// ErrInvalidStatus 表示请求的状态不在封闭集合内。
	ErrInvalidStatus = errors.New("invalid status")
	// ErrNotFound 表示投递记录不存在或不属于请求用户。
	ErrNotFound = errors.New("application not found")
	// ErrConsistency 表示状态更新与历史写入未能一并提交，已整体回滚，可安全重试。
	ErrConsistency = errors.New("status transition could not be committed")
)

// Service 是状态生命周期的唯一入口：校验状态值，更新当前状态，
// 并在同一事务内追加一条不可变的历史事件。
type Service struct {
	db *gorm.DB
}

// NewService 构造状态服务。
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordInitial 在创建投递记录的事务内写入首条历史事件。
// 调用方负责保证 app 已持久化、Status 为 Applied，且事件时间与 LastUpdated 一致。
func RecordInitial(tx *gorm.DB, app *database.Application) error {
	if app.ID == 0 {
		return errors.New("application must be persisted before recording initial status")
	}
	event := database.StatusEvent{
		ApplicationID: app.ID,
		Status:        app.Status,
		CreatedAt:     app.LastUpdated,
	}
	if err := tx.Create(&event).Error; err != nil {
		return fmt.Errorf("record initial status: %w", err)
	}
	return nil
}

// Transition 原子地更新投递记录的当前状态并追加历史事件。
// 投递行加 FOR UPDATE 锁，并发转移按提交顺序串行化；
// 任一写入失败则整体回滚，旧状态与历史保持不变。
func (s *Service) Transition(ctx context.Context, userID, applicationID uint, newStatus, note string) (*database.StatusEvent, error) {
	if !Valid(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var event database.StatusEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ? AND user_id = ?", applicationID, userID)
		// SQLite 的写事务本身全库互斥，FOR UPDATE 仅对 PostgreSQL 生效。
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var app database.Application
		if err := query.First(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock application: %w", err)
		}

		now := time.Now().UTC()
		event = database.StatusEvent{
			ApplicationID: app.ID,
			Status:        newStatus,
			Note:          note,
			CreatedAt:     now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("append status event: %w", err)
		}

		if err := tx.Model(&database.Application{}).
			Where("id = ?", app.ID).
			Updates(map[string]any{
				"status":       newStatus,
				"last_updated": now,
			}).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConsistency, err)
	}

	return &event, nil
}

// History 返回投递记录的全部状态事件，按时间倒序。
// 记录被软删除后历史仍可查询，因此这里用 Unscoped 做归属校验。
func (s *Service) History(ctx context.Context, userID, applicationID uint) ([]database.StatusEvent, error) {
	var app database.Application
	if err := s.db.WithContext(ctx).Unscoped().
		Select("id", "user_id").
		Where("id = ? AND user_id = ?", applicationID, userID).
		First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query application: %w", err)
	}

	var events []database.StatusEvent
	if err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at DESC, id DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("query status events: %w", err)
	}
	return events, nil
}
