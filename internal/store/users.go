// ABOUTME: User store methods on MongoStore
// ABOUTME: Covers account CRUD, partial profile updates, and idempotent role mutation

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateUser inserts a new account. The caller assigns the ID; a duplicate
// trips the unique index and is reported as ErrConflict.
func (s *MongoStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	u := *user
	u.CreatedAt = time.Now().UTC()
	if u.Roles == nil {
		u.Roles = []Role{}
	}

	if _, err := s.users.InsertOne(ctx, &u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("user %s: %w", u.ID, ErrConflict)
		}
		return nil, fmt.Errorf("inserting user: %w: %v", ErrStore, err)
	}

	s.logger.Debug("created user", "id", u.ID)
	return &u, nil
}

// GetUser retrieves an account by ID.
func (s *MongoStore) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w: %v", ErrStore, err)
	}
	return &user, nil
}

// UpdateUser applies the non-nil fields of update. Nil fields are left
// untouched; a non-nil pointer to "" writes the empty string.
func (s *MongoStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	set := bson.M{}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Name != nil {
		set["name"] = *update.Name
	}

	if len(set) == 0 {
		return s.GetUser(ctx, id)
	}

	result, err := s.users.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("updating user: %w: %v", ErrStore, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated user", "id", id)
	return s.GetUser(ctx, id)
}

// DeleteUser removes an account, returning it as it existed. Deleting an
// absent user returns nil without error.
func (s *MongoStore) DeleteUser(ctx context.Context, id string) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if _, err := s.users.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return nil, fmt.Errorf("deleting user: %w: %v", ErrStore, err)
	}

	s.logger.Debug("deleted user", "id", id)
	return user, nil
}

// AddRole grants a role. Granting a role the user already holds is a no-op.
func (s *MongoStore) AddRole(ctx context.Context, id string, role Role) error {
	return s.updateRoles(ctx, id, bson.M{"$addToSet": bson.M{"roles": role}})
}

// RemoveRole revokes a role. Revoking a role the user doesn't hold is a no-op.
func (s *MongoStore) RemoveRole(ctx context.Context, id string, role Role) error {
	return s.updateRoles(ctx, id, bson.M{"$pull": bson.M{"roles": role}})
}

func (s *MongoStore) updateRoles(ctx context.Context, id string, update bson.M) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("updating roles: %w: %v", ErrStore, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
