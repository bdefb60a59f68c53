package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/worldle/apps/go-server/internal/config"
	"github.com/robalobadob/worldle/apps/go-server/internal/countries"
	"github.com/robalobadob/worldle/apps/go-server/internal/daily"
	"github.com/robalobadob/worldle/apps/go-server/internal/database"
	"github.com/robalobadob/worldle/apps/go-server/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	if err := countries.Init(""); err != nil {
		t.Fatalf("countries.Init: %v", err)
	}
	db, err := database.OpenMigrated(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTExpiresDays: 1,
		CookieName:     "worldle_token",
		ClientOrigin:   "http://localhost:5173",
		Environment:    "test",
		DailySalt:      "test-salt",
		ShapeBaseURL:   "/assets/",
		GameTTL:        time.Hour,
	}
	return New(cfg, store.NewMemoryStore(), db)
}

// client replays cookies between requests like a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, h: s.Router(), cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			c.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code
}

type testGuessRes struct {
	Accepted   bool         `json:"accepted"`
	Reason     string       `json:"reason"`
	Transition string       `json:"transition"`
	Guess      *guessView   `json:"guess"`
	State      string       `json:"state"`
	Guesses    []guessView  `json:"guesses"`
	Remaining  int          `json:"remaining"`
	Answer     *countryView `json:"answer"`
}

func (c *client) newGame(answer string) string {
	c.t.Helper()
	var res newGameRes
	if code := c.do(http.MethodPost, "/game/new", newGameReq{Answer: answer}, &res); code != http.StatusOK {
		c.t.Fatalf("/game/new status %d", code)
	}
	if res.GameID == "" || res.MaxGuesses != 6 {
		c.t.Fatalf("/game/new = %+v", res)
	}
	return res.GameID
}

func (c *client) guess(path, gameID, country string) testGuessRes {
	c.t.Helper()
	var res testGuessRes
	if code := c.do(http.MethodPost, path, guessReq{GameID: gameID, Country: country}, &res); code != http.StatusOK {
		c.t.Fatalf("%s %s status %d", path, country, code)
	}
	return res
}

func TestHealthAndCountries(t *testing.T) {
	c := newClient(t, newTestServer(t))

	var health map[string]any
	if code := c.do(http.MethodGet, "/health", nil, &health); code != http.StatusOK || health["ok"] != true {
		t.Fatalf("/health = %d %v", code, health)
	}

	var list []countryView
	if code := c.do(http.MethodGet, "/countries?q=land&limit=3", nil, &list); code != http.StatusOK {
		t.Fatalf("/countries status %d", code)
	}
	if len(list) != 3 {
		t.Fatalf("/countries returned %d items", len(list))
	}
	for _, cv := range list {
		if !strings.Contains(strings.ToLower(cv.Name), "land") {
			t.Errorf("unexpected match %q", cv.Name)
		}
	}

	if code := c.do(http.MethodGet, "/countries?limit=-1", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("negative limit status %d", code)
	}

	var nf map[string]string
	if code := c.do(http.MethodGet, "/nope", nil, &nf); code != http.StatusNotFound || nf["error"] != "not_found" {
		t.Fatalf("404 = %d %v", code, nf)
	}
}

func TestGameWinFlow(t *testing.T) {
	c := newClient(t, newTestServer(t))
	id := c.newGame("fr")

	res := c.guess("/game/guess", id, "Spain")
	if !res.Accepted || res.Guess == nil || res.Guess.Code != "ES" || res.State != "playing" {
		t.Fatalf("first guess = %+v", res)
	}
	if res.Guess.Direction != "NE" || res.Guess.DistanceKm <= 0 || res.Answer != nil {
		t.Fatalf("feedback = %+v answer=%v", res.Guess, res.Answer)
	}

	if res := c.guess("/game/guess", id, "es"); res.Accepted || res.Reason != reasonDuplicate || len(res.Guesses) != 1 {
		t.Fatalf("duplicate = %+v", res)
	}
	if res := c.guess("/game/guess", id, "Atlantis"); res.Accepted || res.Reason != reasonUnknown {
		t.Fatalf("unknown = %+v", res)
	}

	res = c.guess("/game/guess", id, "France")
	if !res.Accepted || res.Transition != "won" || res.State != "won" {
		t.Fatalf("winning guess = %+v", res)
	}
	if res.Guess.Direction != "correct" || res.Guess.Arrow != "🎉" || res.Guess.Proximity != 100 {
		t.Fatalf("winning feedback = %+v", res.Guess)
	}
	if res.Answer == nil || res.Answer.Name != "France" || res.Remaining != 0 {
		t.Fatalf("answer not revealed: %+v", res)
	}

	if res := c.guess("/game/guess", id, "Germany"); res.Accepted || res.Reason != reasonFinished || len(res.Guesses) != 2 {
		t.Fatalf("post-win guess = %+v", res)
	}

	var view gameView
	if code := c.do(http.MethodGet, "/game/"+id, nil, &view); code != http.StatusOK {
		t.Fatalf("GET /game status %d", code)
	}
	if view.State != "won" || len(view.Guesses) != 2 || view.Shape != "/assets/fr.svg" {
		t.Fatalf("view = %+v", view)
	}
}

func TestGameLoseFlow(t *testing.T) {
	c := newClient(t, newTestServer(t))
	id := c.newGame("JP")

	wrong := []string{"DE", "ES", "IT", "PT", "NL", "BE"}
	var res testGuessRes
	for i, code := range wrong {
		res = c.guess("/game/guess", id, code)
		if !res.Accepted {
			t.Fatalf("guess %d rejected: %+v", i+1, res)
		}
		if i < len(wrong)-1 && (res.Transition != "none" || res.Answer != nil) {
			t.Fatalf("guess %d = %+v", i+1, res)
		}
	}
	if res.Transition != "lost" || res.State != "lost" || res.Answer == nil || res.Answer.Name != "Japan" {
		t.Fatalf("sixth guess = %+v", res)
	}

	res = c.guess("/game/guess", id, "JP")
	if res.Accepted || res.Reason != reasonFinished || len(res.Guesses) != 6 {
		t.Fatalf("seventh guess = %+v", res)
	}
}

func TestGameErrors(t *testing.T) {
	c := newClient(t, newTestServer(t))

	if code := c.do(http.MethodPost, "/game/guess", guessReq{GameID: "missing", Country: "FR"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown game status %d", code)
	}
	if code := c.do(http.MethodPost, "/game/guess", guessReq{Country: "FR"}, nil); code != http.StatusBadRequest {
		t.Fatalf("missing id status %d", code)
	}
	if code := c.do(http.MethodPost, "/game/new", newGameReq{Answer: "ZZ"}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad answer status %d", code)
	}
	if code := c.do(http.MethodGet, "/game/missing", nil, nil); code != http.StatusNotFound {
		t.Fatalf("GET missing status %d", code)
	}

	// Random answer when none is given.
	id := c.newGame("")
	if code := c.do(http.MethodGet, "/game/"+id, nil, nil); code != http.StatusOK {
		t.Fatalf("GET random game status %d", code)
	}
}

func TestDailyFlow(t *testing.T) {
	s := newTestServer(t)
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.daily.now = func() time.Time { return fixed }
	answer := countries.All()[daily.AnswerIndex(fixed, "test-salt", len(countries.All()))]

	c := newClient(t, s)
	var first, again dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &first)
	c.do(http.MethodPost, "/daily/new", nil, &again)
	if first.GameID == "" || first.Played || first.Date != "2026-10-18" {
		t.Fatalf("daily/new = %+v", first)
	}
	if again.GameID != first.GameID {
		t.Fatalf("session not reused: %s vs %s", first.GameID, again.GameID)
	}

	// Another player cannot guess on this game.
	other := newClient(t, s)
	if code := other.do(http.MethodPost, "/daily/guess", guessReq{GameID: first.GameID, Country: answer.Code}, nil); code != http.StatusConflict {
		t.Fatalf("foreign guess status %d", code)
	}

	res := c.guess("/daily/guess", first.GameID, answer.Name)
	if !res.Accepted || res.Transition != "won" {
		t.Fatalf("daily win = %+v", res)
	}

	var after dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &after)
	if !after.Played || after.GameID != "" {
		t.Fatalf("daily/new after finishing = %+v", after)
	}

	var lb lbRes
	if code := c.do(http.MethodGet, "/daily/leaderboard", nil, &lb); code != http.StatusOK {
		t.Fatalf("leaderboard status %d", code)
	}
	if lb.Date != "2026-10-18" || len(lb.Top) != 1 || lb.Top[0].Guesses != 1 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	if code := c.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad date status %d", code)
	}

	// Sessions from previous days are forgotten once their game is evicted.
	ctx := context.Background()
	if n := s.daily.sweep(ctx, fixed.AddDate(0, 0, 1)); n != 0 {
		t.Fatalf("sweep removed %d sessions with a live game", n)
	}
	s.store.Sweep(ctx, time.Now().Add(time.Minute))
	if n := s.daily.sweep(ctx, fixed.AddDate(0, 0, 1)); n != 1 {
		t.Fatalf("sweep removed %d sessions", n)
	}
}

func TestFreePlayRejectsDailyGames(t *testing.T) {
	s := newTestServer(t)
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	s.daily.now = func() time.Time { return fixed }
	_, answer, _ := daily.Answer(fixed, "test-salt", countries.All())

	c := newClient(t, s)
	var started dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &started)

	other := newClient(t, s)
	for name, cl := range map[string]*client{"owner": c, "other": other} {
		if code := cl.do(http.MethodPost, "/game/guess", guessReq{GameID: started.GameID, Country: answer.Code}, nil); code != http.StatusNotFound {
			t.Fatalf("%s: /game/guess on a daily game status %d", name, code)
		}
	}

	var view gameView
	c.do(http.MethodGet, "/game/"+started.GameID, nil, &view)
	if len(view.Guesses) != 0 || view.State != "playing" {
		t.Fatalf("daily game changed: %+v", view)
	}

	var again dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &again)
	if again.Played || again.GameID != started.GameID {
		t.Fatalf("daily/new = %+v", again)
	}
}

func TestDailyGameSurvivesMidnight(t *testing.T) {
	s := newTestServer(t)
	start := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	now := start
	s.daily.now = func() time.Time { return now }
	_, answer, _ := daily.Answer(start, "test-salt", countries.All())

	c := newClient(t, s)
	var started dailyNewRes
	c.do(http.MethodPost, "/daily/new", nil, &started)

	now = start.Add(2 * time.Minute)
	res := c.guess("/daily/guess", started.GameID, answer.Code)
	if !res.Accepted || res.Transition != "won" {
		t.Fatalf("guess after midnight = %+v", res)
	}

	var lb lbRes
	c.do(http.MethodGet, "/daily/leaderboard?date=2026-10-18", nil, &lb)
	if len(lb.Top) != 1 {
		t.Fatalf("result not recorded under the start date: %+v", lb)
	}
}

func signup(t *testing.T, s *Server, username string) *client {
	t.Helper()
	c := newClient(t, s)
	if code := c.do(http.MethodPost, "/auth/signup", credentialsReq{Username: username, Password: "correct-horse"}, nil); code != http.StatusCreated {
		t.Fatalf("signup %s status %d", username, code)
	}
	return c
}

func TestGuessOnForeignGameEarnsNoStats(t *testing.T) {
	s := newTestServer(t)
	alice := signup(t, s, "alice")
	bob := signup(t, s, "bob_b")

	id := alice.newGame("FR")
	if res := bob.guess("/game/guess", id, "FR"); !res.Accepted {
		t.Fatalf("guess = %+v", res)
	}

	var stats struct {
		GamesPlayed int `json:"gamesPlayed"`
		Wins        int `json:"wins"`
	}
	bob.do(http.MethodGet, "/stats/me", nil, &stats)
	if stats.GamesPlayed != 0 || stats.Wins != 0 {
		t.Fatalf("bob earned stats for alice's game: %+v", stats)
	}

	var mine []gameRow
	bob.do(http.MethodGet, "/games/mine", nil, &mine)
	if len(mine) != 0 {
		t.Fatalf("bob's history = %+v", mine)
	}
	alice.do(http.MethodGet, "/games/mine", nil, &mine)
	if len(mine) != 1 || mine[0].Status != "playing" || mine[0].Guesses != 0 {
		t.Fatalf("alice's row was rewritten: %+v", mine)
	}
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t, newTestServer(t))

	if code := c.do(http.MethodGet, "/stats/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous /stats/me status %d", code)
	}

	// A guest game gets claimed on signup.
	guestGame := c.newGame("FR")
	c.guess("/game/guess", guestGame, "FR")

	creds := credentialsReq{Username: "navigator", Password: "correct-horse"}
	if code := c.do(http.MethodPost, "/auth/signup", creds, nil); code != http.StatusCreated {
		t.Fatalf("signup status %d", code)
	}
	if code := c.do(http.MethodPost, "/auth/signup", creds, nil); code != http.StatusConflict {
		t.Fatalf("duplicate signup status %d", code)
	}
	if code := c.do(http.MethodPost, "/auth/signup", credentialsReq{Username: "x", Password: "correct-horse"}, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid signup status %d", code)
	}

	var me map[string]string
	if code := c.do(http.MethodGet, "/auth/me", nil, &me); code != http.StatusOK || me["username"] != "navigator" {
		t.Fatalf("/auth/me = %d %v", code, me)
	}

	// Logged-in games bump stats.
	won := c.newGame("BR")
	c.guess("/game/guess", won, "Brazil")

	lost := c.newGame("AU")
	for _, code := range []string{"DE", "ES", "IT", "PT", "NL", "BE"} {
		c.guess("/game/guess", lost, code)
	}

	var stats struct {
		GamesPlayed int `json:"gamesPlayed"`
		Wins        int `json:"wins"`
		Streak      int `json:"streak"`
		MaxStreak   int `json:"maxStreak"`
	}
	if code := c.do(http.MethodGet, "/stats/me", nil, &stats); code != http.StatusOK {
		t.Fatalf("/stats/me status %d", code)
	}
	if stats.GamesPlayed != 2 || stats.Wins != 1 || stats.Streak != 0 || stats.MaxStreak != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	var mine []gameRow
	if code := c.do(http.MethodGet, "/games/mine", nil, &mine); code != http.StatusOK {
		t.Fatalf("/games/mine status %d", code)
	}
	if len(mine) != 3 {
		t.Fatalf("/games/mine returned %d games: %+v", len(mine), mine)
	}
	for _, g := range mine {
		if g.Status == "playing" || g.Answer == "" {
			t.Errorf("history row = %+v", g)
		}
	}

	c.do(http.MethodPost, "/auth/logout", nil, nil)
	if code := c.do(http.MethodGet, "/auth/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("/auth/me after logout status %d", code)
	}

	if code := c.do(http.MethodPost, "/auth/login", credentialsReq{Username: "navigator", Password: "wrong-password"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", code)
	}
	if code := c.do(http.MethodPost, "/auth/login", creds, nil); code != http.StatusOK {
		t.Fatalf("login status %d", code)
	}
	if code := c.do(http.MethodGet, "/auth/me", nil, nil); code != http.StatusOK {
		t.Fatalf("/auth/me after login status %d", code)
	}
}

func TestSweepDropsIdleGames(t *testing.T) {
	s := newTestServer(t)
	c := newClient(t, s)
	id := c.newGame("FR")

	s.Sweep(context.Background(), time.Now().Add(time.Minute))
	if code := c.do(http.MethodGet, "/game/"+id, nil, nil); code != http.StatusNotFound {
		t.Fatalf("swept game status %d", code)
	}
}
