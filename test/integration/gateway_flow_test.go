package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"feedgate/internal/domain"
	"feedgate/internal/http/handler"
	"feedgate/internal/http/middleware"
	"feedgate/internal/http/router"
	"feedgate/internal/realtime"
	"feedgate/internal/repository"
	"feedgate/internal/security"
	"feedgate/internal/service"
)

const sessionSigningKey = "0123456789abcdef0123456789abcdef"

// newGatewayServer stands up the complete gateway against miniredis and
// an in-memory database, the same assembly the serve command performs.
func newGatewayServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() {
		_ = redisClient.Close()
		redisServer.Close()
	})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Feed{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps concurrent writers off sqlite's lock
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	templateDir := t.TempDir()
	mustWriteFile(t, filepath.Join(templateDir, "login.hbs"), "<p>please log in</p>")
	mustWriteFile(t, filepath.Join(templateDir, "private", "feeds.hbs"), "feeds of {{.userLogin}} ({{.accessToken}})")

	users := repository.NewUserRepository(db)
	feeds := repository.NewFeedRepository(db)
	entries := repository.NewRedisEntryStore(redisClient, "it")
	tokens := service.NewRedisTokenCache(redisClient, "it")
	sessions := service.NewRedisSessionStore(redisClient, "it")

	broker := realtime.NewBroker()
	authService := service.NewAuthService(users, tokens, sessions, time.Hour, time.Hour, time.Second)
	feedService := service.NewFeedService(feeds, entries, broker, time.Second)
	cookies := security.NewSessionCookies([]byte(sessionSigningKey), "gate_session", 3600, false)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authService, cookies),
		FeedHandler:      handler.NewFeedHandler(feedService),
		Pages:            handler.NewPagesHandler(handler.NewHTMLRenderer(templateDir)),
		EventBus:         handler.NewEventBusHandler(broker, realtime.NewFeedOwnerACL(feeds)),
		Mediator:         &middleware.Mediator{Sessions: sessions, Tokens: tokens, Cookies: cookies, StoreTimeout: time.Second},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		LoginPage:        "/login.hbs",
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return server, client
}

func mustWriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	return resp, decodeEnvelope(t, resp.Body)
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]json.RawMessage {
	t.Helper()
	raw, _ := io.ReadAll(body)
	var env map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope %q: %v", raw, err)
		}
	}
	return env
}

// TestBrowserAndAPIJourney walks the whole user story once: register,
// log in, browse a gated page, drive the feeds API with the bearer
// token, then log out and observe every credential die together.
func TestBrowserAndAPIJourney(t *testing.T) {
	server, client := newGatewayServer(t)

	resp, _ := postJSON(t, client, server.URL+"/api/register", "", map[string]string{
		"login": "journey", "credential": "s3cret-pass", "displayName": "Journey",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", resp.StatusCode)
	}

	resp, env := postJSON(t, client, server.URL+"/api/login", "", map[string]string{
		"login": "journey", "credential": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d", resp.StatusCode)
	}
	var loginData struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env["data"], &loginData); err != nil || loginData.AccessToken == "" {
		t.Fatalf("login data: %s", env["data"])
	}

	pageReq, _ := http.NewRequest(http.MethodGet, server.URL+"/private/feeds.hbs", nil)
	pageResp, err := client.Do(pageReq)
	if err != nil {
		t.Fatalf("private page: %v", err)
	}
	page, _ := io.ReadAll(pageResp.Body)
	pageResp.Body.Close()
	if pageResp.StatusCode != http.StatusOK || !strings.Contains(string(page), "feeds of journey") {
		t.Fatalf("private page: %d %q", pageResp.StatusCode, page)
	}
	if !strings.Contains(string(page), loginData.AccessToken) {
		t.Fatal("private page must expose the API token to its scripts")
	}

	resp, env = postJSON(t, client, server.URL+"/api/feeds", loginData.AccessToken, map[string]string{
		"url": "https://news.example/rss", "title": "News",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create feed: %d", resp.StatusCode)
	}
	var feed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env["data"], &feed); err != nil || feed.ID == "" {
		t.Fatalf("feed data: %s", env["data"])
	}

	resp, _ = postJSON(t, client, server.URL+"/api/logout", loginData.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: %d", resp.StatusCode)
	}

	apiReq, _ := http.NewRequest(http.MethodGet, server.URL+"/api/feeds", nil)
	apiReq.Header.Set("Authorization", "Bearer "+loginData.AccessToken)
	apiResp, err := client.Do(apiReq)
	if err != nil {
		t.Fatalf("post-logout api call: %v", err)
	}
	apiResp.Body.Close()
	if apiResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token must be rejected, got %d", apiResp.StatusCode)
	}

	pageReq2, _ := http.NewRequest(http.MethodGet, server.URL+"/private/feeds.hbs", nil)
	pageResp2, err := client.Do(pageReq2)
	if err != nil {
		t.Fatalf("post-logout page: %v", err)
	}
	pageResp2.Body.Close()
	if pageResp2.StatusCode != http.StatusSeeOther {
		t.Fatalf("dead session must redirect, got %d", pageResp2.StatusCode)
	}
}

// TestConcurrentRegistrationOverHTTP races the same login through the
// full stack. The unique index decides; exactly one 201 comes back.
func TestConcurrentRegistrationOverHTTP(t *testing.T) {
	server, _ := newGatewayServer(t)

	const racers = 4
	statuses := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(`{"login":"contested","credential":"s3cret-pass"}`)
			req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/register", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	var created, conflicted int
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		case 0:
			t.Fatal("a registration request failed at transport level")
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one 201, got %d (conflicts %d)", created, conflicted)
	}
}
