package db

import (
	"context"
	"fmt"
	"log"

	"go-quest/internal/quest"

	"github.com/qdrant/go-client/qdrant"
)

// Quests carry no embedding yet; a one-dimensional placeholder vector satisfies the schema
const questVectorSize = 1

// QdrantRepository persists quests as point payloads in a Qdrant collection
type QdrantRepository struct {
	Client         *qdrant.Client
	CollectionName string
}

// NewQdrantClient connects to Qdrant over gRPC
func NewQdrantClient(host string, port int, apiKey string) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}
	return client, nil
}

// NewQdrantRepository creates the repository and its collection if needed
func NewQdrantRepository(ctx context.Context, client *qdrant.Client, collectionName string) (*QdrantRepository, error) {
	repo := &QdrantRepository{
		Client:         client,
		CollectionName: collectionName,
	}
	if err := repo.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure quest collection: %w", err)
	}
	return repo, nil
}

func (r *QdrantRepository) ensureCollection(ctx context.Context) error {
	exists, err := r.Client.CollectionExists(ctx, r.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		err = r.Client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: r.CollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     questVectorSize,
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create quests collection: %w", err)
		}
		log.Printf("[QdrantRepository] Created collection: %s", r.CollectionName)
	}

	for _, field := range []string{"status", "type", "template_id"} {
		ft := qdrant.FieldType_FieldTypeKeyword
		_, err := r.Client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: r.CollectionName,
			FieldName:      field,
			FieldType:      &ft,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			// Index may already exist
			log.Printf("[QdrantRepository] Note: Index creation for %s: %v", field, err)
		}
	}
	return nil
}

// Save upserts the quest as a point
func (r *QdrantRepository) Save(ctx context.Context, q *quest.Quest) error {
	doc, err := q.Serialize()
	if err != nil {
		return err
	}

	payload := map[string]*qdrant.Value{
		"quest_data":  qdrant.NewValueString(string(doc)),
		"status":      qdrant.NewValueString(string(q.Status)),
		"type":        qdrant.NewValueString(string(q.Type)),
		"template_id": qdrant.NewValueString(q.TemplateID),
		"created_at":  qdrant.NewValueInt(q.CreatedAt.Unix()),
	}

	_, err = r.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(q.ID),
			Vectors: qdrant.NewVectors(make([]float32, questVectorSize)...),
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert quest %s: %w", q.ID, err)
	}
	return nil
}

// Get retrieves a quest by id
func (r *QdrantRepository) Get(ctx context.Context, id string) (*quest.Quest, error) {
	points, err := r.Client.Get(ctx, &qdrant.GetPoints{
		CollectionName: r.CollectionName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", quest.ErrQuestNotFound, id)
	}
	return questFromPayload(points[0].Payload)
}

// ListByStatus scrolls every quest in a status, one page at a time
func (r *QdrantRepository) ListByStatus(ctx context.Context, status quest.Status) ([]*quest.Quest, error) {
	const pageSize = 100
	var (
		quests []*quest.Quest
		offset *qdrant.PointId
	)
	for {
		points, err := r.Client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: r.CollectionName,
			Filter: &qdrant.Filter{
				Must: []*qdrant.Condition{
					qdrant.NewMatch("status", string(status)),
				},
			},
			Limit:       qdrant.PtrOf(uint32(pageSize)),
			Offset:      offset,
			WithPayload: qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list quests by status: %w", err)
		}

		page := points
		if offset != nil && len(page) > 0 {
			// The offset point is inclusive and was already read
			page = page[1:]
		}
		for _, p := range page {
			q, err := questFromPayload(p.Payload)
			if err != nil {
				log.Printf("[QdrantRepository] Warning: Failed to parse quest: %v", err)
				continue
			}
			quests = append(quests, q)
		}
		if len(points) < pageSize {
			return quests, nil
		}
		offset = points[len(points)-1].Id
	}
}

func questFromPayload(payload map[string]*qdrant.Value) (*quest.Quest, error) {
	if payload == nil {
		return nil, fmt.Errorf("point has no payload")
	}
	data, ok := payload["quest_data"]
	if !ok {
		return nil, fmt.Errorf("point missing quest_data payload")
	}
	return quest.Deserialize([]byte(data.GetStringValue()))
}
