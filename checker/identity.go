package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
	"github.com/hazyhaar/steamcheck/checker/internal/store"
)

// GameDataRemoved is the acknowledgement of RemoveGameData.
const GameDataRemoved = "Game data removed"

// Reasons for an inert session.
const (
	ReasonNoSteamID   = "no steamid saved"
	ReasonNoFormat    = "steamid format undetermined"
	ReasonNoSelectors = "no selectors for this page"
)

// Identity is the saved Steam account, exported for callers outside the
// module's internal packages.
type Identity = remote.Identity

// Identity reads the saved account. reason is non-empty when no usable
// identity is saved; err is reserved for store failures.
func (c *Checker) Identity(ctx context.Context) (id remote.Identity, reason string, err error) {
	got, err := c.kv.Get(ctx, store.KeySteamID, store.KeyID64)
	if err != nil {
		return id, "", fmt.Errorf("checker: read identity: %w", err)
	}

	raw, ok := got[store.KeySteamID]
	if !ok || json.Unmarshal(raw, &id.SteamID) != nil || id.SteamID == "" {
		return remote.Identity{}, ReasonNoSteamID, nil
	}
	raw, ok = got[store.KeyID64]
	if !ok || json.Unmarshal(raw, &id.ID64) != nil {
		return remote.Identity{}, ReasonNoFormat, nil
	}
	return id, "", nil
}

// SetIdentity saves the account and removes the game data cached for the
// previous one.
func (c *Checker) SetIdentity(ctx context.Context, id remote.Identity) error {
	id.SteamID = strings.TrimSpace(id.SteamID)
	if id.SteamID == "" {
		return fmt.Errorf("checker: empty steamid")
	}
	err := c.kv.Set(ctx, map[string]any{
		store.KeySteamID: id.SteamID,
		store.KeyID64:    id.ID64,
	})
	if err != nil {
		return fmt.Errorf("checker: save identity: %w", err)
	}
	c.logger.Info("checker: identity saved", "steamid", id.SteamID, "id64", id.ID64)

	if _, err := c.RemoveGameData(ctx); err != nil {
		return err
	}
	return nil
}

// RemoveGameData wipes every cached game-data key, legacy and current.
// The saved identity is kept.
func (c *Checker) RemoveGameData(ctx context.Context) (string, error) {
	if err := c.kv.Remove(ctx, store.GameDataKeys...); err != nil {
		return "", fmt.Errorf("checker: remove game data: %w", err)
	}
	c.logger.Info("checker: game data removed")
	return GameDataRemoved, nil
}
