package domain

// ChangeKind indicates what happened to an entity
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// RepositoryChange is broadcast by an offline repository after every mutation.
// It is the same whether the mutation went to the backend or into the queue.
type RepositoryChange[T any] struct {
	Kind ChangeKind `json:"kind"`
	Item T          `json:"item"`
}

// Created returns a created change for item
func Created[T any](item T) RepositoryChange[T] {
	return RepositoryChange[T]{Kind: ChangeCreated, Item: item}
}

// Updated returns an updated change for item
func Updated[T any](item T) RepositoryChange[T] {
	return RepositoryChange[T]{Kind: ChangeUpdated, Item: item}
}

// Deleted returns a deleted change for item
func Deleted[T any](item T) RepositoryChange[T] {
	return RepositoryChange[T]{Kind: ChangeDeleted, Item: item}
}
