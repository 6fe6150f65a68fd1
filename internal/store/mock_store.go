// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without MongoDB

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing. It mirrors the
// MongoStore semantics, including idempotent likes/roles and cascading,
// stack-driven delete.
type MockStore struct {
	mu       sync.RWMutex
	messages map[string]*mockMessage // keyed by message ID
	users    map[string]*User        // keyed by user ID
	seq      int                     // insertion counter, breaks CreatedAt ties
}

type mockMessage struct {
	msg *Message
	seq int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string]*mockMessage),
		users:    make(map[string]*User),
	}
}

// ListPosts returns top-level messages in insertion order.
func (m *MockStore) ListPosts(ctx context.Context, limit, offset int) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*mockMessage
	for _, e := range m.messages {
		if e.msg.IsPost() {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	posts := []*Message{}
	for i := offset; i < len(entries) && len(posts) < limit; i++ {
		posts = append(posts, copyMessage(entries[i].msg))
	}
	return posts, nil
}

// GetMessage retrieves a message by ID.
func (m *MockStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessage(e.msg), nil
}

// GetOwnedMessage retrieves a message by ID, requiring the owner to match.
func (m *MockStore) GetOwnedMessage(ctx context.Context, id, ownerID string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.messages[id]
	if !ok || e.msg.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyMessage(e.msg), nil
}

// CreateMessage stores a new message and assigns its ID.
func (m *MockStore) CreateMessage(ctx context.Context, msg *Message) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyMessage(msg)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	if stored.Likes == nil {
		stored.Likes = []string{}
	}

	m.seq++
	m.messages[stored.ID] = &mockMessage{msg: stored, seq: m.seq}
	return copyMessage(stored), nil
}

// EditMessage replaces the content of the message.
func (m *MockStore) EditMessage(ctx context.Context, id, content string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.msg.Content = content
	return copyMessage(e.msg), nil
}

// DeleteMessage removes the message and its reply subtree using the same
// explicit work stack as the MongoDB implementation.
func (m *MockStore) DeleteMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.messages[id]
	if !ok {
		return nil, nil
	}
	deleted := copyMessage(root.msg)

	order := []string{id}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for childID, e := range m.messages {
			if e.msg.ParentID == cur {
				order = append(order, childID)
				stack = append(stack, childID)
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		delete(m.messages, order[i])
	}
	return deleted, nil
}

// AddLike records a like, idempotently.
func (m *MockStore) AddLike(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.messages[id]
	if !ok {
		return ErrNotFound
	}
	for _, l := range e.msg.Likes {
		if l == userID {
			return nil
		}
	}
	e.msg.Likes = append(e.msg.Likes, userID)
	return nil
}

// RemoveLike withdraws a like, idempotently.
func (m *MockStore) RemoveLike(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.messages[id]
	if !ok {
		return ErrNotFound
	}
	for i, l := range e.msg.Likes {
		if l == userID {
			e.msg.Likes = append(e.msg.Likes[:i], e.msg.Likes[i+1:]...)
			return nil
		}
	}
	return nil
}

// CreateUser stores a new account, failing on a duplicate ID.
func (m *MockStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return nil, fmt.Errorf("user %s: %w", user.ID, ErrConflict)
	}

	stored := copyUser(user)
	stored.CreatedAt = time.Now().UTC()
	if stored.Roles == nil {
		stored.Roles = []Role{}
	}
	m.users[stored.ID] = stored
	return copyUser(stored), nil
}

// GetUser retrieves an account by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// UpdateUser applies the non-nil fields of update.
func (m *MockStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	return copyUser(u), nil
}

// DeleteUser removes an account, idempotently.
func (m *MockStore) DeleteUser(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	delete(m.users, id)
	return copyUser(u), nil
}

// AddRole grants a role, idempotently.
func (m *MockStore) AddRole(ctx context.Context, id string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, r := range u.Roles {
		if r == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

// RemoveRole revokes a role, idempotently.
func (m *MockStore) RemoveRole(ctx context.Context, id string, role Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	for i, r := range u.Roles {
		if r == role {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return nil
		}
	}
	return nil
}

// copyMessage makes a defensive copy so callers can't mutate stored state.
func copyMessage(msg *Message) *Message {
	c := *msg
	c.Likes = append([]string(nil), msg.Likes...)
	if c.Likes == nil {
		c.Likes = []string{}
	}
	return &c
}

func copyUser(u *User) *User {
	c := *u
	c.Roles = append([]Role(nil), u.Roles...)
	if c.Roles == nil {
		c.Roles = []Role{}
	}
	return &c
}
