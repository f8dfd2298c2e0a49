package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/models"
	"storefront/services"
)

// MongoUsers stores accounts and revoked tokens.
type MongoUsers struct {
	users     *mongo.Collection
	blacklist *mongo.Collection
}

func NewMongoUsers(m *Mongo) *MongoUsers {
	return &MongoUsers{
		users:     m.DB.Collection(usersCollection),
		blacklist: m.DB.Collection(blacklistCollection),
	}
}

func (s *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, services.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (s *MongoUsers) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now().UTC()

	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return services.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Revoke blacklists a token until it would have expired anyway.
func (s *MongoUsers) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := s.blacklist.InsertOne(ctx, bson.M{"token": token, "expiresAt": expiresAt})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *MongoUsers) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := s.blacklist.FindOne(ctx, bson.M{"token": token}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return true, nil
}

// MemoryUsers is the in-memory counterpart of MongoUsers.
type MemoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
	revoked map[string]time.Time
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: map[string]models.User{}, revoked: map[string]time.Time{}}
}

func (s *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &user, nil
}

func (s *MemoryUsers) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return services.ErrDuplicateKey
	}
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = time.Now().UTC()
	s.byEmail[email] = *user
	return nil
}

func (s *MemoryUsers) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = expiresAt
	return nil
}

func (s *MemoryUsers) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[token]
	return ok, nil
}
