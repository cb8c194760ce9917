package store

// Key layout. Legacy keys come from the first storage schema; their
// presence forces a full wipe of the game data.
const (
	KeyNumGames   = "numgames"
	KeyShortNames = "shortnames"
	KeyAliases    = "aliases"

	KeyOwnedHash          = "owned_hash"
	KeyOwnedShortNames    = "owned_shortnames"
	KeyWishlistHash       = "wishlist_hash"
	KeyWishlistShortNames = "wishlist_shortnames"

	KeySteamID = "steamid"
	KeyID64    = "id64"
)

// LegacyKeys are the keys of the first storage schema.
var LegacyKeys = []string{KeyNumGames, KeyShortNames, KeyAliases}

// GameDataKeys is every key holding cached game data, legacy and current.
// The identity keys are not part of it.
var GameDataKeys = []string{
	KeyNumGames, KeyShortNames, KeyAliases,
	KeyWishlistHash, KeyWishlistShortNames,
	KeyOwnedHash, KeyOwnedShortNames,
}
