package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Identity is the saved account the library data is fetched for.
type Identity struct {
	SteamID string `json:"steamid"`
	// ID64 reports whether SteamID is a 64-bit numeric id rather than a
	// vanity name.
	ID64 bool `json:"id64"`
}

// Game is one owned game as reported by the owned-games service.
type Game struct {
	AppID                  int    `json:"appid"`
	Name                   string `json:"name"`
	PlaytimeForever        int    `json:"playtime_forever,omitempty"`
	PlaytimeWindowsForever int    `json:"playtime_windows_forever,omitempty"`
	PlaytimeMacForever     int    `json:"playtime_mac_forever,omitempty"`
	PlaytimeLinuxForever   int    `json:"playtime_linux_forever,omitempty"`
	PlaytimeDeckForever    int    `json:"playtime_deck_forever,omitempty"`
	RTimeLastPlayed        int64  `json:"rtime_last_played,omitempty"`
	ImgIconURL             string `json:"img_icon_url,omitempty"`
	HasCommunityStats      bool   `json:"has_community_visible_stats,omitempty"`
}

// OwnedGames is the owned-games payload.
type OwnedGames struct {
	GameCount int    `json:"game_count"`
	Games     []Game `json:"games"`
}

// App is one entry of the store-wide app list.
type App struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// AliasMap maps an app id to alternate normalized names for that app.
type AliasMap map[string][]string

// Alias request modes.
const (
	AliasesAll  = "all"
	AliasesSome = "some"
)

// AliasRequest is the body of the aliases call. Names is only sent in
// AliasesSome mode.
type AliasRequest struct {
	Type  string   `json:"type"`
	Names []string `json:"names,omitempty"`
}

// Snapshot is everything fetched from the remote services for one session.
type Snapshot struct {
	Owned    OwnedGames
	Wishlist []string
	Aliases  AliasMap
	AppList  []App
}

// appID decodes an id sent either as a JSON string or a JSON number.
type appID string

func (a *appID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = appID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("remote: app id %s: %w", data, err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("remote: app id %s: %w", data, err)
	}
	*a = appID(n.String())
	return nil
}
