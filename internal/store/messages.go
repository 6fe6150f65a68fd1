// ABOUTME: Message store methods on MongoStore
// ABOUTME: Covers post listing, create/edit, cascading delete, and like mutation

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListPosts returns up to limit top-level messages, skipping offset, ordered
// by creation time ascending. Comments are never included.
func (s *MongoStore) ListPosts(ctx context.Context, limit, offset int) ([]*Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, bson.M{"kind": MessageKindPost}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w: %v", ErrStore, err)
	}
	defer cursor.Close(ctx)

	var posts []*Message
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decoding posts: %w: %v", ErrStore, err)
	}

	if posts == nil {
		posts = []*Message{}
	}
	return posts, nil
}

// GetMessage retrieves a message by ID.
func (s *MongoStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	return s.findMessage(ctx, bson.M{"_id": id})
}

// GetOwnedMessage retrieves a message by ID, requiring the owner to match.
// An owner mismatch is reported as ErrNotFound, same as an absent message.
func (s *MongoStore) GetOwnedMessage(ctx context.Context, id, ownerID string) (*Message, error) {
	return s.findMessage(ctx, bson.M{"_id": id, "owner_id": ownerID})
}

func (s *MongoStore) findMessage(ctx context.Context, filter bson.M) (*Message, error) {
	var msg Message
	err := s.messages.FindOne(ctx, filter).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding message: %w: %v", ErrStore, err)
	}
	return &msg, nil
}

// CreateMessage inserts the message and returns it with its assigned ID.
// The ParentID of a comment is stored as given; existence of the parent is
// the validation layer's concern, not enforced here.
func (s *MongoStore) CreateMessage(ctx context.Context, msg *Message) (*Message, error) {
	m := *msg
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if m.Likes == nil {
		m.Likes = []string{}
	}

	if _, err := s.messages.InsertOne(ctx, &m); err != nil {
		return nil, fmt.Errorf("inserting message: %w: %v", ErrStore, err)
	}

	s.logger.Debug("created message", "id", m.ID, "kind", m.Kind, "owner_id", m.OwnerID)
	return &m, nil
}

// EditMessage replaces the content of the message and returns the updated
// document.
func (s *MongoStore) EditMessage(ctx context.Context, id, content string) (*Message, error) {
	result, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"content": content}},
	)
	if err != nil {
		return nil, fmt.Errorf("updating message: %w: %v", ErrStore, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		// The update matched but the re-read missed; the message was
		// deleted out from under us.
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("rereading edited message %s: %w", id, ErrStore)
		}
		return nil, err
	}

	s.logger.Debug("edited message", "id", id)
	return msg, nil
}

// DeleteMessage removes the message and its whole reply subtree. It walks the
// tree with an explicit work stack rather than call recursion, so arbitrarily
// deep threads cannot overflow the stack. Children are deleted before their
// parents; a failure partway through leaves a partially pruned subtree.
func (s *MongoStore) DeleteMessage(ctx context.Context, id string) (*Message, error) {
	root, err := s.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Discovery order is parents-before-children, so deleting in reverse
	// removes every child before its parent.
	order := []string{id}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.childIDs(ctx, cur)
		if err != nil {
			return nil, err
		}
		order = append(order, children...)
		stack = append(stack, children...)
	}

	for i := len(order) - 1; i >= 0; i-- {
		if _, err := s.messages.DeleteOne(ctx, bson.M{"_id": order[i]}); err != nil {
			return nil, fmt.Errorf("deleting message %s: %w: %v", order[i], ErrStore, err)
		}
	}

	s.logger.Debug("deleted message subtree", "id", id, "count", len(order))
	return root, nil
}

func (s *MongoStore) childIDs(ctx context.Context, parentID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.messages.Find(ctx, bson.M{"parent_id": parentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding children of %s: %w: %v", parentID, ErrStore, err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding child id: %w: %v", ErrStore, err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating children: %w: %v", ErrStore, err)
	}
	return ids, nil
}

// AddLike records a like by userID. Liking a message twice is a no-op.
func (s *MongoStore) AddLike(ctx context.Context, id, userID string) error {
	return s.updateLikes(ctx, id, bson.M{"$addToSet": bson.M{"likes": userID}})
}

// RemoveLike withdraws a like by userID. Removing an absent like is a no-op.
func (s *MongoStore) RemoveLike(ctx context.Context, id, userID string) error {
	return s.updateLikes(ctx, id, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *MongoStore) updateLikes(ctx context.Context, id string, update bson.M) error {
	result, err := s.messages.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("updating likes: %w: %v", ErrStore, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
