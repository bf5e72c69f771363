package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blog-server/internal/domain"
	"blog-server/internal/repository"
)

type postDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Category    string             `bson:"category"`
	Description string             `bson:"description"`
	Thumbnail   string             `bson:"thumbnail"`
	Creator     primitive.ObjectID `bson:"creator"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *postDocument) toDomain() domain.Post {
	return domain.Post{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Category:    d.Category,
		Description: d.Description,
		Thumbnail:   d.Thumbnail,
		Creator:     d.Creator.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// PostRepository keeps posts in the "posts" collection.
type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) repository.PostRepository {
	return &PostRepository{col: db.Collection("posts")}
}

func (r *PostRepository) Init(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create posts indexes: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (string, error) {
	creator, err := objectID(post.Creator)
	if err != nil {
		return "", fmt.Errorf("post creator: %w", err)
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}

	res, err := r.col.InsertOne(ctx, postDocument{
		Title:       post.Title,
		Category:    post.Category,
		Description: post.Description,
		Thumbnail:   post.Thumbnail,
		Creator:     creator,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("mongo insert post: %w", err)
	}
	post.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return post.ID, nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc postDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("mongo find post: %w", err)
	}
	post := doc.toDomain()
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	return r.find(ctx, bson.M{}, "updatedAt")
}

func (r *PostRepository) ListByCategory(ctx context.Context, category string) ([]domain.Post, error) {
	return r.find(ctx, bson.M{"category": category}, "createdAt")
}

func (r *PostRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Post, error) {
	oid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		// an id that cannot exist owns no posts
		return []domain.Post{}, nil
	}
	return r.find(ctx, bson.M{"creator": oid}, "createdAt")
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	oid, err := objectID(post.ID)
	if err != nil {
		return err
	}
	post.UpdatedAt = time.Now().UTC()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       post.Title,
		"category":    post.Category,
		"description": post.Description,
		"thumbnail":   post.Thumbnail,
		"updatedAt":   post.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("mongo update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("post %s: %w", post.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *PostRepository) CountByCreator(ctx context.Context, creatorID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		return 0, nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"creator": oid})
	if err != nil {
		return 0, fmt.Errorf("mongo count posts: %w", err)
	}
	return n, nil
}

func (r *PostRepository) CountAllByCreator(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$creator"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo aggregate post counts: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Creator primitive.ObjectID `bson:"_id"`
		Count   int64              `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongo decode post counts: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Creator.Hex()] = row.Count
	}
	return counts, nil
}

func (r *PostRepository) find(ctx context.Context, filter bson.M, sortField string) ([]domain.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find posts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode posts: %w", err)
	}
	posts := make([]domain.Post, len(docs))
	for i := range docs {
		posts[i] = docs[i].toDomain()
	}
	return posts, nil
}
