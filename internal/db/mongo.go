package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/mediavault/internal/models"
)

// ConnectMongoDB initializes the database connection and verifies it with a
// ping. The returned handle is passed explicitly to the components that need
// it; there is no package-level client.
func ConnectMongoDB(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}
	return client.Database(dbName), nil
}

// MongoUserStore is the MongoDB-backed UserStore. Users live in a single
// collection with their access tokens embedded as an array.
type MongoUserStore struct {
	users *mongo.Collection
}

func NewMongoUserStore(database *mongo.Database) *MongoUserStore {
	return &MongoUserStore{users: database.Collection("users")}
}

// EnsureIndexes creates the unique email index. Duplicate issuance for the
// same (email, fileId) pair is prevented by the guarded $push in AppendToken;
// the unique email index keeps concurrent first-time user creation safe.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	return nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) Insert(ctx context.Context, user *models.User) error {
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *MongoUserStore) PruneExpiredTokens(ctx context.Context, email, fileID string, now time.Time) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$pull": bson.M{"tokens": bson.M{
			"file_id":    fileID,
			"expires_at": bson.M{"$lt": now},
		}}},
	)
	return err
}

// AppendToken uses a conditional update so the duplicate check and the push
// happen in one atomic document operation, closing the check-then-act race
// between concurrent issuances.
func (s *MongoUserStore) AppendToken(ctx context.Context, email string, tok models.AccessToken) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"email": email, "tokens.file_id": bson.M{"$ne": tok.FileID}},
		bson.M{"$push": bson.M{"tokens": tok}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the user vanished or a token for this file is already there.
		if _, err := s.FindByEmail(ctx, email); err != nil {
			return err
		}
		return ErrTokenExists
	}
	return nil
}

func (s *MongoUserStore) FindByToken(ctx context.Context, token, fileID string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{
		"tokens": bson.M{"$elemMatch": bson.M{"token": token, "file_id": fileID}},
	}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) FindByTokenAny(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"tokens.token": token}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) UsersWithTokenFor(ctx context.Context, fileID string) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{"tokens.file_id": fileID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoUserStore) RemoveTokensForFile(ctx context.Context, fileID string) (int64, error) {
	res, err := s.users.UpdateMany(ctx,
		bson.M{},
		bson.M{"$pull": bson.M{"tokens": bson.M{"file_id": fileID}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MongoUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}
