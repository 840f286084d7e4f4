// Redis-backed preference store.
//
// Terminal preferences (stock threshold, scanner flags, scan history) are
// shared between every register pointed at the same Redis, the way the
// browser original shared them between tabs through localStorage. Change
// notifications ride a pub/sub channel per key so a threshold change on one
// register shows up on the others without a reload.
package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements PreferenceStore on Redis
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger

	mu        sync.Mutex
	listeners map[string]map[int]func(string)
	nextID    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RedisStoreOptions configures the Redis store
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string // key namespace; defaults to "poskit:prefs"
	Logger    Logger // optional
}

// NewRedisStore creates a preference store backed by Redis and starts the
// change-notification subscriber.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrStoreUnavailable)
	}
	if opts.Namespace == "" {
		opts.Namespace = "poskit:prefs"
	}
	if opts.Logger == nil {
		opts.Logger = &NoOpLogger{}
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(redisOpt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		opts.Logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error": err,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", ErrStoreUnavailable)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    opts.Logger,
		listeners: make(map[string]map[int]func(string)),
		cancel:    runCancel,
	}
	s.wg.Add(1)
	go s.subscribeLoop(runCtx)
	return s, nil
}

func (s *RedisStore) key(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisStore) channel() string {
	return s.namespace + ":changes"
}

// Get retrieves a value. A missing key yields "" and no error, matching
// localStorage.getItem returning null.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", &POSError{Op: "prefs.Get", Kind: "store", ID: key, Err: err}
	}
	return val, nil
}

// Set stores a value with optional TTL and publishes the change.
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return &POSError{Op: "prefs.Set", Kind: "store", ID: key, Err: err}
	}
	// Best effort: a dropped notification only delays convergence until the
	// next read.
	if err := s.client.Publish(ctx, s.channel(), key+"\x00"+value).Err(); err != nil {
		s.logger.Warn("Preference change notification failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
	return nil
}

// Delete removes a value and publishes an empty-value change.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return &POSError{Op: "prefs.Delete", Kind: "store", ID: key, Err: err}
	}
	if err := s.client.Publish(ctx, s.channel(), key+"\x00").Err(); err != nil {
		s.logger.Warn("Preference change notification failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
	return nil
}

// OnChange registers a listener for writes to key made through any handle
// of the same namespace, local or remote.
func (s *RedisStore) OnChange(key string, fn func(value string)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners[key] == nil {
		s.listeners[key] = make(map[int]func(string))
	}
	id := s.nextID
	s.nextID++
	s.listeners[key][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[key], id)
	}
}

// Close stops the subscriber and releases the Redis connection.
func (s *RedisStore) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.client.Close()
}

func (s *RedisStore) subscribeLoop(ctx context.Context) {
	defer s.wg.Done()

	sub := s.client.Subscribe(ctx, s.channel())
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			key, value, found := strings.Cut(msg.Payload, "\x00")
			if !found {
				continue
			}
			s.mu.Lock()
			fns := make([]func(string), 0, len(s.listeners[key]))
			for _, fn := range s.listeners[key] {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn(value)
			}
		}
	}
}
