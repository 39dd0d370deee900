package kv

import "errors"

// Status is the numeric result code of a hash map operation.
type Status uint8

const (
	OK Status = iota
	MemoryError
	KeyAlreadyExists
	KeyError
	ValueError
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case MemoryError:
		return "MEMORY_ERROR"
	case KeyAlreadyExists:
		return "KEY_ALREADY_EXISTS"
	case KeyError:
		return "KEY_ERROR"
	case ValueError:
		return "VALUE_ERROR"
	default:
	}
	return "UNKNOWN"
}

type HashMapErr string

const (
	ErrKeyNotFound      HashMapErr = "[hashmap] key not found"
	ErrKeyAlreadyExists HashMapErr = "[hashmap] key already exists"
	ErrInvalidCapacity  HashMapErr = "[hashmap] invalid capacity"
	ErrOutOfMemory      HashMapErr = "[hashmap] out of memory"
)

func (err HashMapErr) Error() string {
	return string(err)
}

func (err HashMapErr) Status() Status {
	switch err {
	case ErrKeyNotFound:
		return KeyError
	case ErrKeyAlreadyExists:
		return KeyAlreadyExists
	case ErrInvalidCapacity:
		return ValueError
	case ErrOutOfMemory:
		return MemoryError
	default:
	}
	return ValueError
}

// StatusOf maps an error returned by a HashMap, wrapped or not,
// to its status code. Foreign errors are reported as ValueError.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var herr HashMapErr
	if errors.As(err, &herr) {
		return herr.Status()
	}
	return ValueError
}

// HashMapEntry is a read-only view of a stored pair. Next and Prev
// walk the insertion order.
type HashMapEntry[V any] interface {
	Key() string
	Val() V
	Next() HashMapEntry[V]
	Prev() HashMapEntry[V]
}

// HashMap is a string keyed map with separate chaining. It is not
// safe for concurrent use.
type HashMap[V any] interface {
	// Len is the number of stored entries (used).
	Len() int
	// Cap is the number of buckets (allocated).
	Cap() int
	First() HashMapEntry[V]
	Last() HashMapEntry[V]
	// Reserve grows the bucket index to n buckets. A smaller or
	// equal n is a no-op.
	Reserve(n int) error
	Contains(key string) bool
	// Put never overwrites, ErrKeyAlreadyExists is returned instead.
	Put(key string, val V) error
	Get(key string) (V, error)
	Remove(key string) error
	Pop(key string) (V, error)
	Foreach(action func(idx int, key string, val V) bool)
	Keys() []string
	// Clear drops all entries and keeps the capacity.
	Clear()
	// Release drops all entries and the bucket index, Cap becomes 0.
	// The map stays usable.
	Release()
}
