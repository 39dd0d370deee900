package kv

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/benz9527/xds/lib/xlog"
)

const (
	defaultHashMapCapacity = 8
	// Upper bound of the bucket index, 512 MiB of bucket pointers on
	// 64-bit platforms. Larger limits are clamped.
	defaultHashMapMaxCapacity = 1 << 26
)

/*
Separate chaining. The index keeps one chain per bucket, the entries
are linked a second time in insertion order (first <-> last) for the
iteration and the rehash.

 index |   0    |   1    |   2    |   3    | ... | cap-1  |
-------|--------|--------|--------|--------|     |--------|
 chain | key1   |  nil   | key2   |  nil   | ... |  nil   |
       |  |     |        |        |        |     |        |
       | 1yek   |        |        |        |     |        |

 order: first -> key1 -> key2 -> 1yek <- last
*/

var (
	_ HashMap[int]      = (*hashMap[int])(nil)
	_ HashMapEntry[int] = (*hashMapEntry[int])(nil)
)

type hashMapEntry[V any] struct {
	key  string
	val  V
	hash uint64
	next *hashMapEntry[V] // bucket chain
	prev *hashMapEntry[V] // insertion order
	succ *hashMapEntry[V] // insertion order
}

func (e *hashMapEntry[V]) Key() string {
	return e.key
}

func (e *hashMapEntry[V]) Val() V {
	return e.val
}

func (e *hashMapEntry[V]) Next() HashMapEntry[V] {
	return e.succ.asEntry()
}

func (e *hashMapEntry[V]) Prev() HashMapEntry[V] {
	return e.prev.asEntry()
}

func (e *hashMapEntry[V]) asEntry() HashMapEntry[V] {
	if e == nil {
		return nil
	}
	return e
}

type hashMap[V any] struct {
	index     []*hashMapEntry[V]
	first     *hashMapEntry[V]
	last      *hashMapEntry[V]
	used      int
	initCap   int
	maxCap    int
	hasher    Hasher
	statsName string
	stats     *hashMapStats
	logger    xlog.XLogger
}

func (m *hashMap[V]) Len() int {
	return m.used
}

func (m *hashMap[V]) Cap() int {
	return len(m.index)
}

func (m *hashMap[V]) First() HashMapEntry[V] {
	return m.first.asEntry()
}

func (m *hashMap[V]) Last() HashMapEntry[V] {
	return m.last.asEntry()
}

func (m *hashMap[V]) bucket(hash uint64) uint64 {
	return hash % uint64(len(m.index))
}

// lookup returns the entry and its predecessor in the bucket chain.
func (m *hashMap[V]) lookup(key string, hash uint64) (e, prev *hashMapEntry[V]) {
	if len(m.index) == 0 {
		return nil, nil
	}
	for e = m.index[m.bucket(hash)]; e != nil; prev, e = e, e.next {
		if e.hash == hash && e.key == key {
			return e, prev
		}
	}
	return nil, nil
}

func (m *hashMap[V]) Reserve(n int) error {
	var err error
	switch {
	case n < 0:
		err = fmt.Errorf("reserve negative capacity %d: %w", n, ErrOutOfMemory)
	case n == 0:
		err = ErrInvalidCapacity
	case n > m.maxCap:
		err = fmt.Errorf("reserve capacity %d over limit %d: %w", n, m.maxCap, ErrOutOfMemory)
	}
	if err != nil {
		m.logger.Warn("hashmap reserve rejected", zap.Int("capacity", n), zap.Error(err))
		return err
	}

	if n <= len(m.index) {
		return nil
	}
	m.rehash(n)
	return nil
}

func (m *hashMap[V]) rehash(n int) {
	from := len(m.index)
	index := make([]*hashMapEntry[V], n)
	for e := m.first; e != nil; e = e.succ {
		i := e.hash % uint64(n)
		e.next = index[i]
		index[i] = e
	}
	clear(m.index)
	m.index = index
	m.stats.IncreaseRehashCount(n)
	m.logger.Debug("hashmap rehashed",
		zap.Int("from", from),
		zap.Int("to", n),
		zap.Int("used", m.used),
	)
}

func (m *hashMap[V]) nextCap() (int, error) {
	if len(m.index) == 0 {
		return m.initCap, nil
	}
	if len(m.index) >= m.maxCap {
		return 0, fmt.Errorf("grow full capacity %d: %w", m.maxCap, ErrOutOfMemory)
	}
	return min(len(m.index)<<1, m.maxCap), nil
}

func (m *hashMap[V]) Put(key string, val V) error {
	hash := m.hasher(key)
	if e, _ := m.lookup(key, hash); e != nil {
		return ErrKeyAlreadyExists
	}
	if m.used >= len(m.index) {
		newCap, err := m.nextCap()
		if err == nil {
			err = m.Reserve(newCap)
		}
		if err != nil {
			m.logger.Error(err, "hashmap put rejected",
				zap.String("key", key),
				zap.Int("used", m.used),
			)
			return err
		}
	}

	i := m.bucket(hash)
	if /* hash collision */ m.index[i] != nil {
		m.stats.IncreaseCollisionCount()
	}
	e := &hashMapEntry[V]{
		key:  key,
		val:  val,
		hash: hash,
		next: m.index[i],
		prev: m.last,
	}
	m.index[i] = e
	if m.last != nil {
		m.last.succ = e
	} else {
		m.first = e
	}
	m.last = e
	m.used++
	m.stats.RecordEntryCount(1)
	return nil
}

func (m *hashMap[V]) Get(key string) (val V, err error) {
	e, _ := m.lookup(key, m.hasher(key))
	if e == nil {
		return val, ErrKeyNotFound
	}
	return e.val, nil
}

func (m *hashMap[V]) Contains(key string) bool {
	e, _ := m.lookup(key, m.hasher(key))
	return e != nil
}

func (m *hashMap[V]) unlink(e, prev *hashMapEntry[V]) {
	if prev != nil {
		prev.next = e.next
	} else {
		m.index[m.bucket(e.hash)] = e.next
	}

	if e.prev != nil {
		e.prev.succ = e.succ
	} else {
		m.first = e.succ
	}
	if e.succ != nil {
		e.succ.prev = e.prev
	} else {
		m.last = e.prev
	}

	e.next, e.prev, e.succ = nil, nil, nil
	m.used--
	m.stats.RecordEntryCount(-1)
}

func (m *hashMap[V]) Remove(key string) error {
	e, prev := m.lookup(key, m.hasher(key))
	if e == nil {
		return ErrKeyNotFound
	}
	m.unlink(e, prev)
	return nil
}

func (m *hashMap[V]) Pop(key string) (val V, err error) {
	e, prev := m.lookup(key, m.hasher(key))
	if e == nil {
		return val, ErrKeyNotFound
	}
	m.unlink(e, prev)
	return e.val, nil
}

func (m *hashMap[V]) Foreach(action func(idx int, key string, val V) bool) {
	idx := 0
	for e := m.first; e != nil; e = e.succ {
		if _continue := action(idx, e.key, e.val); !_continue {
			return
		}
		idx++
	}
}

func (m *hashMap[V]) Keys() []string {
	keys := make([]string, 0, m.used)
	m.Foreach(func(idx int, key string, val V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (m *hashMap[V]) Clear() {
	for e := m.first; e != nil; {
		succ := e.succ
		e.next, e.prev, e.succ = nil, nil, nil
		e = succ
	}
	clear(m.index)
	m.first, m.last = nil, nil
	m.stats.RecordEntryCount(-int64(m.used))
	m.used = 0
}

func (m *hashMap[V]) Release() {
	used, allocated := m.used, len(m.index)
	m.Clear()
	m.index = nil
	m.stats.RecordCapacity(0)
	m.logger.Debug("hashmap released",
		zap.Int("used", used),
		zap.Int("allocated", allocated),
	)
}

type HashMapOpt[V any] func(*hashMap[V])

// WithHashMapCapacity sets the capacity allocated by NewHashMap and
// after a Release.
func WithHashMapCapacity[V any](capacity int) HashMapOpt[V] {
	return func(m *hashMap[V]) {
		m.initCap = capacity
	}
}

// WithHashMapMaxCapacity lowers the capacity limit. Values above
// 1<<26 are clamped to it.
func WithHashMapMaxCapacity[V any](capacity int) HashMapOpt[V] {
	return func(m *hashMap[V]) {
		m.maxCap = capacity
	}
}

func WithHashMapHasher[V any](hasher Hasher) HashMapOpt[V] {
	return func(m *hashMap[V]) {
		m.hasher = hasher
	}
}

func WithHashMapLogger[V any](logger xlog.XLogger) HashMapOpt[V] {
	return func(m *hashMap[V]) {
		if logger != nil {
			m.logger = logger.Named("hashmap")
		}
	}
}

// WithHashMapStats enables the otel metrics under the meter
// "xds/hashmap/<name>".
func WithHashMapStats[V any](name string) HashMapOpt[V] {
	return func(m *hashMap[V]) {
		m.statsName = name
		if len(name) == 0 {
			m.statsName = "default"
		}
	}
}

func NewHashMap[V any](opts ...HashMapOpt[V]) HashMap[V] {
	m := &hashMap[V]{
		initCap: defaultHashMapCapacity,
		maxCap:  defaultHashMapMaxCapacity,
		hasher:  DefaultHasher,
	}
	for _, o := range opts {
		o(m)
	}

	if m.maxCap <= 0 || m.maxCap > defaultHashMapMaxCapacity {
		m.maxCap = defaultHashMapMaxCapacity
	}
	if m.initCap <= 0 {
		m.initCap = defaultHashMapCapacity
	}
	m.initCap = min(m.initCap, m.maxCap)
	if m.hasher == nil {
		m.hasher = DefaultHasher
	}
	if m.logger == nil {
		m.logger = xlog.NewNopXLogger()
	}
	if len(m.statsName) > 0 {
		m.stats = newHashMapStats(m.statsName)
	}
	m.index = make([]*hashMapEntry[V], m.initCap)
	m.stats.RecordCapacity(m.initCap)
	return m
}
