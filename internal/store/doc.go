// Package store provides persistent storage for loom using MongoDB.
//
// # Architecture
//
// Two interfaces split the persistence surface:
//
//   - MessageStore: posts, comments, likes, and the cascading thread delete
//   - UserStore: accounts and role assignment
//
// MongoStore implements both in a single struct; Store combines them for the
// composition root. NewMockStore() provides an in-memory implementation with
// identical semantics for tests.
//
// # Data Models
//
//   - Message: a post (no parent) or comment (replies to another message).
//     The variant is tagged by Kind at construction via NewPost/NewComment
//     and persisted; it is never inferred from the parent reference.
//   - User: account with caller-assigned unique ID, hashed credential,
//     profile fields, and a role set.
//
// Messages form a forest rooted at posts: the messages sharing a ParentID
// are that parent's reply set. DeleteMessage removes an entire subtree,
// children before parents, using an explicit work stack so thread depth is
// bounded by memory rather than goroutine stack.
//
// # Collections
//
// The messages collection carries {_id, kind, owner_id, content, likes[],
// parent_id, created_at} with indexes on parent_id and (kind, created_at).
// The users collection carries {id, password_hash, email, name, roles[],
// created_at} with a unique index on id.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - ErrConflict: uniqueness violation on create
//   - ErrStore: any backend failure; driver errors never leak past the store
//
// Deleting an absent message or user is not an error; both deletes are
// idempotent and return nil for the prior value. Like and role mutations are
// idempotent set operations.
//
// All methods accept context.Context for cancellation support.
package store
