package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go-quest/internal/quest"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository persists quests in a relational database
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository on an opened database
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Save upserts the quest document
func (r *GormRepository) Save(ctx context.Context, q *quest.Quest) error {
	rec, err := recordFromQuest(q)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "type", "title", "template_id", "document", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("failed to save quest %s: %w", q.ID, err)
	}
	return nil
}

// Get loads a quest by id
func (r *GormRepository) Get(ctx context.Context, id string) (*quest.Quest, error) {
	var rec QuestRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", quest.ErrQuestNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quest %s: %w", id, err)
	}
	return rec.toQuest()
}

// ListByStatus loads every quest in a status, oldest first
func (r *GormRepository) ListByStatus(ctx context.Context, status quest.Status) ([]*quest.Quest, error) {
	var recs []QuestRecord
	err := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("created_at asc").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list quests by status: %w", err)
	}

	quests := make([]*quest.Quest, 0, len(recs))
	for i := range recs {
		q, err := recs[i].toQuest()
		if err != nil {
			log.Printf("[GormRepository] Warning: Failed to parse quest %s: %v", recs[i].ID, err)
			continue
		}
		quests = append(quests, q)
	}
	return quests, nil
}
