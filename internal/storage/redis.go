package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

// RedisAccountStore reads accounts mirrored into Redis by the wiki host.
// Each account is a hash <prefix>account:<name> with a real_name field, and
// the set <prefix>realname:<real name> holds the names carrying that real
// name. The account hash is authoritative; set members whose hash no longer
// agrees are ignored.
type RedisAccountStore struct {
	client *redis.Client
	prefix string
}

// NewRedisAccountStore connects to Redis and verifies the connection
func NewRedisAccountStore(ctx context.Context, address, password string, db int, prefix string) (*RedisAccountStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAccountStoreFromClient(client, prefix), nil
}

// NewRedisAccountStoreFromClient wraps an existing client
func NewRedisAccountStoreFromClient(client *redis.Client, prefix string) *RedisAccountStore {
	return &RedisAccountStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisAccountStore) accountKey(name string) string {
	return r.prefix + "account:" + name
}

func (r *RedisAccountStore) realNameKey(realName string) string {
	return r.prefix + "realname:" + realName
}

// AccountByName looks an account up by login name
func (r *RedisAccountStore) AccountByName(ctx context.Context, name string) (*wiki.Account, error) {
	realName, err := r.client.HGet(ctx, r.accountKey(name), "real_name").Result()
	if errors.Is(err, redis.Nil) {
		return nil, wiki.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by name: %w", err)
	}
	return &wiki.Account{Name: name, RealName: realName}, nil
}

// AccountByRealName returns the first account, by name, whose real name matches
func (r *RedisAccountStore) AccountByRealName(ctx context.Context, realName string) (*wiki.Account, error) {
	if realName == "" {
		return nil, wiki.ErrAccountNotFound
	}
	names, err := r.client.SMembers(ctx, r.realNameKey(realName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts by real name: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		account, err := r.AccountByName(ctx, name)
		if errors.Is(err, wiki.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if account.RealName == realName {
			return account, nil
		}
	}
	return nil, wiki.ErrAccountNotFound
}

// maxPutRetries bounds optimistic retries when the account changes mid-write
const maxPutRetries = 3

// PutAccount writes an account and moves it between reverse sets in one
// transaction, watching the account hash so concurrent writers retry.
func (r *RedisAccountStore) PutAccount(ctx context.Context, name, realName string) error {
	key := r.accountKey(name)
	update := func(tx *redis.Tx) error {
		previous, err := tx.HGet(ctx, key, "real_name").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "real_name", realName)
			if previous != "" && previous != realName {
				pipe.SRem(ctx, r.realNameKey(previous), name)
			}
			if realName != "" {
				pipe.SAdd(ctx, r.realNameKey(realName), name)
			}
			return nil
		})
		return err
	}

	var err error
	for range maxPutRetries {
		err = r.client.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to put account: %w", err)
	}
	return nil
}

// Ping checks the connection
func (r *RedisAccountStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisAccountStore) Close() error {
	return r.client.Close()
}
