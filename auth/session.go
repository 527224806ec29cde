package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/google/uuid"
)

type (
	// Correlator hands out session ids on GET /branches and checks them on
	// the sim-cards call.
	//
	// In the default (weak) mode nothing is remembered: any well formed uuid
	// is accepted, including one made up by the client.
	Correlator struct {
		registry *bigcache.BigCache
	}
)

func NewCorrelator() *Correlator {
	return &Correlator{}
}

// NewStrictCorrelator returns a correlator that only accepts ids it issued to
// the same user during the last ttl.
func NewStrictCorrelator(ctx context.Context, ttl time.Duration) (*Correlator, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: strict session ttl must be positive, got %v", ttl)
	}
	cfg := bigcache.Config{
		Shards:             64,
		LifeWindow:         ttl,
		CleanWindow:        cleanWindow(ttl),
		MaxEntriesInWindow: 10_000,
		// a canonical uuid key plus a decimal user id
		MaxEntrySize:     64,
		HardMaxCacheSize: 64,
	}
	registry, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create session registry, cause %w", err)
	}
	log := logutil.GetOrDefault(ctx)
	log.Debug().Dur("ttl", ttl).Msg("Strict session registry enabled")
	return &Correlator{registry: registry}, nil
}

func cleanWindow(ttl time.Duration) time.Duration {
	w := ttl / 2
	if w < time.Second {
		return time.Second
	}
	return w
}

func (c *Correlator) Strict() bool {
	return c.registry != nil
}

func (c *Correlator) Begin(ctx context.Context, userID int64) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("unable to generate session id, cause %w", err)
	}
	sid := id.String()
	if c.registry != nil {
		err = c.registry.Set(sid, []byte(strconv.FormatInt(userID, 10)))
		if err != nil {
			return "", fmt.Errorf("unable to record session id, cause %w", err)
		}
	}
	return sid, nil
}

func (c *Correlator) Check(ctx context.Context, userID int64, candidate string) error {
	if len(candidate) == 0 {
		return ErrMissingSession
	}
	id, err := parseSessionID(candidate)
	if err != nil {
		return ErrMalformedSession
	}
	if c.registry == nil {
		return nil
	}
	owner, err := c.registry.Get(id.String())
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return ErrUnknownSession
	} else if err != nil {
		return fmt.Errorf("unable to lookup session id, cause %w", err)
	}
	if string(owner) != strconv.FormatInt(userID, 10) {
		log := logutil.GetOrDefault(ctx)
		log.Debug().Int64("user_id", userID).Str("session_id", id.String()).
			Msg("Session id belongs to another user")
		return ErrUnknownSession
	}
	return nil
}

// parseSessionID accepts optional urn:/uuid: prefixes and braces, hyphens
// anywhere, as long as 32 hex digits remain.
func parseSessionID(candidate string) (uuid.UUID, error) {
	hex := strings.ReplaceAll(candidate, "urn:", "")
	hex = strings.ReplaceAll(hex, "uuid:", "")
	hex = strings.Trim(hex, "{}")
	hex = strings.ReplaceAll(hex, "-", "")
	if len(hex) != 32 {
		return uuid.Nil, ErrMalformedSession
	}
	return uuid.Parse(hex)
}

func (c *Correlator) Close() error {
	if c.registry == nil {
		return nil
	}
	return c.registry.Close()
}
