package nlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/loregraph/pkg/types"
)

const cacheKeyPrefix = "completion:"

// CachingClient serves repeated completion requests from a badger store.
// Entries are keyed by a SHA-256 of the model, sampling settings and messages.
type CachingClient struct {
	client Client
	db     *badger.DB
	ttl    time.Duration
	model  string
	logger *slog.Logger
	ownsDB bool
}

// CacheOptions configures a CachingClient.
type CacheOptions struct {
	// Path is the badger directory. Empty opens an in-memory store.
	Path string
	// TTL expires entries; zero keeps them forever.
	TTL time.Duration
	// Model is mixed into the key so switching models misses the cache.
	Model  string
	Logger *slog.Logger
}

// NewCachingClient opens the badger store and wraps client.
func NewCachingClient(client Client, opts CacheOptions) (*CachingClient, error) {
	bopts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open completion cache: %w", err)
	}
	c := NewCachingClientWithDB(client, db, opts)
	c.ownsDB = true
	return c, nil
}

// NewCachingClientWithDB wraps client using an already open badger store.
// The caller keeps ownership of db.
func NewCachingClientWithDB(client Client, db *badger.DB, opts CacheOptions) *CachingClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingClient{
		client: client,
		db:     db,
		ttl:    opts.TTL,
		model:  opts.Model,
		logger: logger,
	}
}

// Chat implements Client
func (c *CachingClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.cached(ctx, messages, false, func() (*types.Response, error) {
		return c.client.Chat(ctx, messages)
	})
}

// ChatWithStructuredOutput implements Client
func (c *CachingClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return c.cached(ctx, messages, true, func() (*types.Response, error) {
		return c.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
}

// ChatStream bypasses the cache.
func (c *CachingClient) ChatStream(ctx context.Context, messages []types.Message) (<-chan StreamChunk, error) {
	sc, ok := c.client.(StreamingClient)
	if !ok {
		return nil, fmt.Errorf("wrapped client does not support streaming")
	}
	return sc.ChatStream(ctx, messages)
}

// Close closes the wrapped client, and the store when this client opened it.
func (c *CachingClient) Close() error {
	err := c.client.Close()
	if c.ownsDB {
		if cerr := c.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (c *CachingClient) cached(ctx context.Context, messages []types.Message, structured bool, call func() (*types.Response, error)) (*types.Response, error) {
	key, err := c.key(ctx, messages, structured)
	if err != nil {
		return call()
	}

	if resp, ok := c.lookup(key); ok {
		c.logger.Debug("Completion cache hit", "key", string(key[len(cacheKeyPrefix):len(cacheKeyPrefix)+12]))
		return resp, nil
	}

	resp, err := call()
	if err != nil {
		return nil, err
	}
	c.store(key, resp)
	return resp, nil
}

func (c *CachingClient) lookup(key []byte) (*types.Response, bool) {
	var resp types.Response
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &resp)
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("Completion cache read failed", "error", err)
		}
		return nil, false
	}
	return &resp, true
}

func (c *CachingClient) store(key []byte, resp *types.Response) {
	if resp == nil || resp.Content == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		c.logger.Warn("Completion cache write failed", "error", err)
	}
}

func (c *CachingClient) key(ctx context.Context, messages []types.Message, structured bool) ([]byte, error) {
	payload := struct {
		Model       string          `json:"model"`
		Structured  bool            `json:"structured"`
		Temperature float32         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens"`
		Messages    []types.Message `json:"messages"`
	}{Model: c.model, Structured: structured, Messages: messages}
	if g, ok := generationFrom(ctx); ok {
		payload.Temperature = g.temperature
		payload.MaxTokens = g.maxTokens
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return []byte(cacheKeyPrefix + hex.EncodeToString(sum[:])), nil
}
