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

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Avatar    string             `bson:"avatar,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Avatar:       d.Avatar,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepository keeps users in the "users" collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) repository.UserRepository {
	return &UserRepository{col: db.Collection("users")}
}

func (r *UserRepository) Init(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (string, error) {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	doc := userDocument{
		Name:      user.Name,
		Email:     user.Email,
		Password:  user.PasswordHash,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert user %s: %w", user.Email, repository.ErrDuplicate)
		}
		return "", fmt.Errorf("mongo insert user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return user.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode users: %w", err)
	}
	users := make([]domain.User, len(docs))
	for i := range docs {
		users[i] = *docs[i].toDomain()
	}
	return users, nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return r.update(ctx, id, bson.M{"avatar": avatar})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, email, passwordHash string) error {
	return r.update(ctx, id, bson.M{
		"name":     name,
		"email":    email,
		"password": passwordHash,
	})
}

func (r *UserRepository) update(ctx context.Context, id string, fields bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	fields["updatedAt"] = time.Now().UTC()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update user %s: %w", id, repository.ErrDuplicate)
		}
		return fmt.Errorf("mongo update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return doc.toDomain(), nil
}
