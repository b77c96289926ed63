// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Repositories are in-memory fakes; the store package tests cover SQL.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"xhsstudio/internal/auth"
	"xhsstudio/internal/cache"
	"xhsstudio/internal/middleware"
	"xhsstudio/internal/models"
	"xhsstudio/internal/store"
)

// fakeUsers keeps users in memory. PasswordHash holds the plain password.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[string]*models.User{}} }

func (f *fakeUsers) FindByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.users[email], nil
}

func (f *fakeUsers) FindByID(id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, f.err
}

func (f *fakeUsers) Create(email, password, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.users[email]; ok {
		return nil, store.ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: password, Name: name, CreatedAt: time.Now()}
	f.users[email] = u
	return u, nil
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return u.PasswordHash == password
}

type fakeConfigs struct {
	mu      sync.Mutex
	configs map[uuid.UUID]*models.AppConfig
}

func newFakeConfigs() *fakeConfigs { return &fakeConfigs{configs: map[uuid.UUID]*models.AppConfig{}} }

func (f *fakeConfigs) Get(userID uuid.UUID) (*models.AppConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.configs[userID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeConfigs) Save(c *models.AppConfig) (*models.AppConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	cp.UpdatedAt = time.Now()
	f.configs[c.UserID] = &cp
	out := cp
	return &out, nil
}

type fakeKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]map[models.Service]*models.APIKey
}

func newFakeKeys() *fakeKeys {
	return &fakeKeys{keys: map[uuid.UUID]map[models.Service]*models.APIKey{}}
}

func (f *fakeKeys) List(userID uuid.UUID) ([]models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.APIKey
	for _, k := range f.keys[userID] {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func (f *fakeKeys) Map(userID uuid.UUID) (map[models.Service]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[models.Service]string{}
	for s, k := range f.keys[userID] {
		out[s] = k.Key
	}
	return out, nil
}

func (f *fakeKeys) Upsert(userID uuid.UUID, service models.Service, key string) (*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[userID] == nil {
		f.keys[userID] = map[models.Service]*models.APIKey{}
	}
	k := &models.APIKey{ID: uuid.New(), UserID: userID, Service: service, Key: key}
	f.keys[userID][service] = k
	cp := *k
	return &cp, nil
}

func (f *fakeKeys) Delete(userID uuid.UUID, service models.Service) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[userID][service]; !ok {
		return false, nil
	}
	delete(f.keys[userID], service)
	return true, nil
}

type fakeGenerations struct {
	mu    sync.Mutex
	items []*models.Generation
}

func (f *fakeGenerations) Create(g *models.Generation) (*models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.items = append(f.items, &cp)
	out := cp
	return &out, nil
}

func (f *fakeGenerations) FindByID(userID, id uuid.UUID) (*models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.items {
		if g.ID == id && g.UserID == userID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGenerations) List(userID uuid.UUID, typ models.GenerationType, limit, offset int) ([]models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Generation
	for i := len(f.items) - 1; i >= 0; i-- {
		g := f.items[i]
		if g.UserID == userID && (typ == "" || g.Type == typ) {
			out = append(out, *g)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeGenerations) Delete(userID, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.items {
		if g.ID == id && g.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeArchives is an in-memory ArchiveStore with take-once semantics.
type fakeArchives struct {
	mu       sync.Mutex
	archives map[string]cache.Archive
	err      error
}

func newFakeArchives() *fakeArchives { return &fakeArchives{archives: map[string]cache.Archive{}} }

func (f *fakeArchives) Put(_ context.Context, a cache.Archive) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	id := uuid.NewString()
	f.archives[id] = a
	return id, nil
}

func (f *fakeArchives) Take(_ context.Context, id string) (*cache.Archive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.archives[id]
	if !ok {
		return nil, nil
	}
	delete(f.archives, id)
	return &a, nil
}

var errFake = errors.New("fake failure")

// testUserID is the authenticated caller in most handler tests.
var testUserID = uuid.MustParse("11111111-2222-3333-4444-555555555555")

// withUser authenticates r as uid.
func withUser(r *http.Request, uid uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &auth.Claims{UserID: uid, Email: "demo@xhsstudio.local"}))
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with body marshalled from v.
func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if v != nil {
		if s, ok := v.(string); ok {
			body.WriteString(s)
		} else if err := json.NewEncoder(&body).Encode(v); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// serve runs h and decodes a JSON response into out (if non-nil).
func serve(t *testing.T, h http.HandlerFunc, r *http.Request, out any) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h(rr, r)
	if out != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr
}

// message extracts {"message"} from an error response.
func message(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Message
}
