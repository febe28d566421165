package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"vocabtextdev/textutil"
)

type Phase int

const (
	Idle Phase = iota
	AwaitingColumn
	AwaitingConfirmation
	AwaitingLevel
	AwaitingTopic
)

func (p Phase) String() string {
	switch p {
	case AwaitingColumn:
		return "awaiting_column"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case AwaitingLevel:
		return "awaiting_level"
	case AwaitingTopic:
		return "awaiting_topic"
	default:
		return "idle"
	}
}

// Session holds one user's in-flight vocabulary request.
type Session struct {
	Phase    Phase
	Words    []string
	Language textutil.Language
	Level    textutil.Level
	Topic    string
	RawText  string
}

// StartUpload replaces any previous state with an uploaded document awaiting a column choice.
func (s *Session) StartUpload(raw string) {
	*s = Session{Phase: AwaitingColumn, RawText: raw}
}

// SetVocabulary stores the filtered words and moves to confirmation.
func (s *Session) SetVocabulary(words []string, lang textutil.Language) {
	s.Words = words
	s.Language = lang
	s.Phase = AwaitingConfirmation
}

func (s *Session) Confirm() {
	s.Phase = AwaitingLevel
}

func (s *Session) SetLevel(level textutil.Level) {
	s.Level = level
	s.Phase = AwaitingTopic
}

type StoreProps struct {
	// IdleTTL evicts sessions untouched for this long. Zero keeps them until destroyed.
	IdleTTL time.Duration
}

// Store is the process-wide user to Session table.
type Store struct {
	sessions *cache.Cache
	ttl      time.Duration

	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(args StoreProps) *Store {
	ttl := cache.NoExpiration
	cleanup := time.Duration(0)
	if args.IdleTTL > 0 {
		ttl = args.IdleTTL
		cleanup = args.IdleTTL / 2
	}

	return &Store{
		sessions: cache.New(ttl, cleanup),
		ttl:      ttl,
		locks:    make(map[int64]*userLock),
	}
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Lock serializes work for one user. The returned func releases the lock.
func (s *Store) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *Store) Get(userID int64) (*Session, bool) {
	v, ok := s.sessions.Get(key(userID))
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Save stores the session and refreshes its idle deadline.
func (s *Store) Save(userID int64, sess *Session) {
	s.sessions.Set(key(userID), sess, s.ttl)
}

func (s *Store) Delete(userID int64) {
	s.sessions.Delete(key(userID))
}

func (s *Store) Len() int {
	return s.sessions.ItemCount()
}
