package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func TestOwnedGamesWrapped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/owned/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("steamid") != "76561197960287930" || r.URL.Query().Get("id64") != "1" {
			t.Errorf("query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"response":{"game_count":2,"games":[{"appid":220,"name":"Half-Life 2"},{"appid":400,"name":"Portal"}]},"aliases":{}}`))
	})
	c := newServer(t, mux)

	owned, err := c.OwnedGames(context.Background(), Identity{SteamID: "76561197960287930", ID64: true})
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if owned.GameCount != 2 || len(owned.Games) != 2 || owned.Games[0].Name != "Half-Life 2" {
		t.Errorf("owned: %+v", owned)
	}
}

func TestOwnedGamesFlat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/owned/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("id64") {
			t.Error("id64 should be absent for vanity ids")
		}
		w.Write([]byte(`{"game_count":1,"games":[{"appid":70,"name":"Half-Life"}]}`))
	})
	c := newServer(t, mux)

	owned, err := c.OwnedGames(context.Background(), Identity{SteamID: "gabe"})
	if err != nil {
		t.Fatalf("owned: %v", err)
	}
	if owned.Games[0].AppID != 70 {
		t.Errorf("owned: %+v", owned)
	}
}

func TestServiceMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/owned/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"profile is private"}`))
	})
	mux.HandleFunc("/aliases/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"maintenance"}`))
	})
	c := newServer(t, mux)
	ctx := context.Background()

	if _, err := c.OwnedGames(ctx, Identity{SteamID: "x"}); !errors.Is(err, ErrRemoteMessage) {
		t.Errorf("owned: got %v, want ErrRemoteMessage", err)
	}
	if _, err := c.Aliases(ctx, AliasRequest{Type: AliasesAll}); !errors.Is(err, ErrRemoteMessage) {
		t.Errorf("aliases: got %v, want ErrRemoteMessage", err)
	}
}

func TestWishlistMixedIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wishlist/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != "id" {
			t.Errorf("type: got %q", got)
		}
		w.Write([]byte(`{"wishlist":["620",730]}`))
	})
	c := newServer(t, mux)

	ids, err := c.Wishlist(context.Background(), Identity{SteamID: "gabe"})
	if err != nil {
		t.Fatalf("wishlist: %v", err)
	}
	if len(ids) != 2 || ids[0] != "620" || ids[1] != "730" {
		t.Errorf("ids: %v", ids)
	}
}

func TestAliasesPost(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/aliases/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		var req AliasRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type != AliasesAll {
			t.Errorf("body: %+v err=%v", req, err)
		}
		w.Write([]byte(`{"220":["hl2","halflife two"],"400":"broken"}`))
	})
	c := newServer(t, mux)

	aliases, err := c.Aliases(context.Background(), AliasRequest{Type: AliasesAll})
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	if len(aliases) != 1 || len(aliases["220"]) != 2 {
		t.Errorf("aliases: %v", aliases)
	}
}

func TestAppList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/appList.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"applist":{"apps":[{"appid":620,"name":"Portal 2"}]}}`))
	})
	c := newServer(t, mux)

	apps, err := c.AppList(context.Background())
	if err != nil {
		t.Fatalf("app list: %v", err)
	}
	if len(apps) != 1 || apps[0].AppID != 620 {
		t.Errorf("apps: %v", apps)
	}
}

func TestSelectorsKeepOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/selectors/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"^/store": {"game_wrapper": ".tile", "title": ".name", "class_type": "tile"},
			".*": [{"game_wrapper": ".row", "title": "a", "class_type": "row"}]
		}`))
	})
	c := newServer(t, mux)

	entries, err := c.Selectors(context.Background())
	if err != nil {
		t.Fatalf("selectors: %v", err)
	}
	if len(entries) != 2 || entries[0].Pattern != "^/store" || entries[1].Pattern != ".*" {
		t.Errorf("entries: %+v", entries)
	}
}

func TestStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/appList.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	c := newServer(t, mux)

	if _, err := c.AppList(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}
