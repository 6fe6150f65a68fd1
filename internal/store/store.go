// ABOUTME: Store interfaces and data types for loom persistence
// ABOUTME: Defines Message, User structs and the MessageStore/UserStore contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// ErrStore wraps backend failures. Driver-specific errors never cross the
// store boundary; callers only ever see ErrStore in their error chain.
var ErrStore = errors.New("store failure")

// Role is an assignable permission tag.
type Role string

const (
	RoleUser   Role = "user"
	RolePoster Role = "post_user"
	RoleAdmin  Role = "admin"
)

// ValidRoles lists all assignable roles.
var ValidRoles = []Role{RoleUser, RolePoster, RoleAdmin}

// ParseRole validates a raw role string against the known role set.
func ParseRole(s string) (Role, error) {
	for _, r := range ValidRoles {
		if s == string(r) {
			return r, nil
		}
	}
	return "", errors.New("unknown role: " + s)
}

// MessageKind distinguishes the two message variants. The kind is fixed at
// construction by NewPost/NewComment and persisted, never re-derived from the
// parent reference at read time.
type MessageKind string

const (
	MessageKindPost    MessageKind = "post"
	MessageKindComment MessageKind = "comment"
)

// Message is a post or a comment. Messages with the same ParentID form the
// reply set of that parent; the whole collection is a forest rooted at posts.
type Message struct {
	ID        string      `bson:"_id,omitempty" json:"id"`
	Kind      MessageKind `bson:"kind" json:"kind"`
	OwnerID   string      `bson:"owner_id" json:"owner_id"`
	Content   string      `bson:"content" json:"content"`
	Likes     []string    `bson:"likes" json:"likes"`
	ParentID  string      `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// NewPost builds a top-level message. The store assigns the ID on create.
func NewPost(ownerID, content string) *Message {
	return &Message{
		Kind:    MessageKindPost,
		OwnerID: ownerID,
		Content: content,
		Likes:   []string{},
	}
}

// NewComment builds a reply to parentID. Parent existence is not checked
// here; the API boundary validates it before calling CreateMessage.
func NewComment(ownerID, content, parentID string) *Message {
	return &Message{
		Kind:     MessageKindComment,
		OwnerID:  ownerID,
		Content:  content,
		Likes:    []string{},
		ParentID: parentID,
	}
}

// IsPost reports whether the message is a top-level post.
func (m *Message) IsPost() bool {
	return m.Kind == MessageKindPost
}

// User is an account. The ID is caller-assigned at creation and unique.
type User struct {
	ID           string    `bson:"id" json:"id"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	Roles        []Role    `bson:"roles" json:"roles"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// UserUpdate carries profile field changes. A nil field means "leave
// unchanged"; a non-nil field is written even when it points at "".
type UserUpdate struct {
	PasswordHash *string
	Email        *string
	Name         *string
}

// MessageStore defines message persistence.
//
// ListPosts order is creation time ascending (insertion order) and is stable
// across calls.
type MessageStore interface {
	ListPosts(ctx context.Context, limit, offset int) ([]*Message, error)

	// GetMessage returns ErrNotFound if no message has the given ID.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// GetOwnedMessage additionally requires the owner to match and returns
	// ErrNotFound on a mismatch, indistinguishable from an absent message.
	GetOwnedMessage(ctx context.Context, id, ownerID string) (*Message, error)

	// CreateMessage inserts a message built by NewPost or NewComment and
	// returns it with the store-assigned ID. A dangling ParentID is not an
	// error at this layer.
	CreateMessage(ctx context.Context, msg *Message) (*Message, error)

	// EditMessage replaces the content and returns the updated message.
	EditMessage(ctx context.Context, id, content string) (*Message, error)

	// DeleteMessage removes the message and its entire reply subtree,
	// children before parents. It returns the root message as it existed,
	// or nil if it was already absent (idempotent, never ErrNotFound).
	// A failure partway through leaves the subtree partially pruned and is
	// surfaced as ErrStore; there is no rollback.
	DeleteMessage(ctx context.Context, id string) (*Message, error)

	// AddLike and RemoveLike are idempotent set mutations on the like list.
	AddLike(ctx context.Context, id, userID string) error
	RemoveLike(ctx context.Context, id, userID string) error
}

// UserStore defines account persistence.
type UserStore interface {
	// CreateUser returns ErrConflict if the ID is already taken.
	CreateUser(ctx context.Context, user *User) (*User, error)

	GetUser(ctx context.Context, id string) (*User, error)

	// UpdateUser applies the non-nil fields of update and returns the
	// updated user.
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error)

	// DeleteUser returns the user as it existed, or nil if already absent.
	DeleteUser(ctx context.Context, id string) (*User, error)

	// AddRole and RemoveRole are idempotent set mutations on the role list.
	AddRole(ctx context.Context, id string, role Role) error
	RemoveRole(ctx context.Context, id string, role Role) error
}

// Store combines both persistence contracts. MongoStore and MockStore
// implement it.
type Store interface {
	MessageStore
	UserStore
}
