package db

import (
	"time"

	"go-quest/internal/quest"

	"gorm.io/datatypes"
)

// QuestRecord stores a quest as a JSON document with a few indexed columns
type QuestRecord struct {
	ID         string         `gorm:"primaryKey;size:64" json:"id"`
	Status     string         `gorm:"index;size:16" json:"status"`
	Type       string         `gorm:"size:16" json:"type"`
	Title      string         `json:"title"`
	TemplateID string         `gorm:"index;size:128" json:"template_id"`
	Document   datatypes.JSON `json:"document"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (QuestRecord) TableName() string {
	return "quests"
}

func recordFromQuest(q *quest.Quest) (*QuestRecord, error) {
	doc, err := q.Serialize()
	if err != nil {
		return nil, err
	}
	return &QuestRecord{
		ID:         q.ID,
		Status:     string(q.Status),
		Type:       string(q.Type),
		Title:      q.Title,
		TemplateID: q.TemplateID,
		Document:   datatypes.JSON(doc),
		CreatedAt:  q.CreatedAt,
	}, nil
}

func (r *QuestRecord) toQuest() (*quest.Quest, error) {
	return quest.Deserialize(r.Document)
}
