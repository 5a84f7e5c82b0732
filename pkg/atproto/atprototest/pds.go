// Package atprototest provides an in-process fake PDS for tests.
package atprototest

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/aeolius/pkg/atproto"
	"github.com/aussiebroadwan/aeolius/pkg/idx"
	"github.com/aussiebroadwan/aeolius/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

const scopeAccess = "com.atproto.access"

// Account is a user of the fake PDS.
type Account struct {
	DID      string
	Handle   string
	Password string
	Avatar   string
}

// Post is a post record. RawCreatedAt, when set, is served verbatim instead
// of CreatedAt.
type Post struct {
	Rkey         string
	CreatedAt    time.Time
	RawCreatedAt string
}

type grant struct {
	did     string
	refresh bool
}

type failure struct {
	status int
	code   string
}

type hold struct {
	reached chan struct{}
	release chan struct{}
}

type account struct {
	Account
	posts   []Post
	deleted []string
}

// PDS is a fake PDS serving the XRPC methods used by Aeolius over
// httptest.
type PDS struct {
	*httptest.Server

	key []byte

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]grant
	failures map[string]failure
	holds    map[string]*hold
	calls    map[string]int
}

// New starts a fake PDS that is closed when the test ends.
func New(t testing.TB) *PDS {
	t.Helper()

	p := &PDS{
		key:      []byte(rand.Text()),
		accounts: map[string]*account{},
		tokens:   map[string]grant{},
		failures: map[string]failure{},
		holds:    map[string]*hold{},
		calls:    map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /xrpc/com.atproto.server.createSession", p.createSession)
	mux.HandleFunc("GET /xrpc/com.atproto.server.getSession", p.getSession)
	mux.HandleFunc("POST /xrpc/com.atproto.server.refreshSession", p.refreshSession)
	mux.HandleFunc("GET /xrpc/app.bsky.actor.getProfile", p.getProfile)
	mux.HandleFunc("GET /xrpc/com.atproto.repo.listRecords", p.listRecords)
	mux.HandleFunc("POST /xrpc/com.atproto.repo.applyWrites", p.applyWrites)

	p.Server = httptest.NewServer(p.count(mux))
	t.Cleanup(p.Close)
	return p
}

// AddAccount registers an account.
func (p *PDS) AddAccount(a Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[a.DID] = &account{Account: a}
}

// AddPosts adds post records to the account's repo.
func (p *PDS) AddPosts(did string, posts ...Post) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.accounts[did]
	a.posts = append(a.posts, posts...)
	slices.SortFunc(a.posts, func(x, y Post) int { return strings.Compare(x.Rkey, y.Rkey) })
}

// Posts returns the rkeys still in the account's repo, oldest first.
func (p *PDS) Posts(did string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rkeys []string
	for _, post := range p.accounts[did].posts {
		rkeys = append(rkeys, post.Rkey)
	}
	return rkeys
}

// Deleted returns the rkeys deleted from the account's repo in order.
func (p *PDS) Deleted(did string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.accounts[did].deleted)
}

// Calls returns how often an XRPC method was called.
func (p *PDS) Calls(nsid string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[nsid]
}

// Fail makes every call of nsid fail with status and XRPC error code until
// Recover is called.
func (p *PDS) Fail(nsid string, status int, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[nsid] = failure{status: status, code: code}
}

// Recover clears all failures set by Fail.
func (p *PDS) Recover() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.failures)
}

// Hold blocks the next call of nsid until release is called. reached is
// closed once that call has arrived. Failures set by Fail apply after the
// release. release may be called more than once.
func (p *PDS) Hold(nsid string) (reached <-chan struct{}, release func()) {
	h := &hold{reached: make(chan struct{}), release: make(chan struct{})}

	p.mu.Lock()
	p.holds[nsid] = h
	p.mu.Unlock()

	var once sync.Once
	return h.reached, func() { once.Do(func() { close(h.release) }) }
}

// Issue mints a session for did without a password exchange.
func (p *PDS) Issue(did string) atproto.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issue(p.accounts[did])
}

// Revoke invalidates a token.
func (p *PDS) Revoke(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tokens, token)
}

func (p *PDS) issue(a *account) atproto.Session {
	access := p.mint(a.DID, scopeAccess, 2*time.Hour)
	refresh := p.mint(a.DID, jwtx.ScopeRefresh, 90*24*time.Hour)
	p.tokens[access] = grant{did: a.DID}
	p.tokens[refresh] = grant{did: a.DID, refresh: true}

	return atproto.Session{
		AccessJwt:  access,
		RefreshJwt: refresh,
		Handle:     a.Handle,
		DID:        a.DID,
	}
}

func (p *PDS) mint(did, scope string, ttl time.Duration) string {
	now := time.Now()
	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   did,
			Audience:  jwt.ClaimStrings{"did:web:" + strings.TrimPrefix(p.URL, "http://")},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.New().String(),
		},
		Scope: scope,
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		panic(err)
	}
	return raw
}

func (p *PDS) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nsid := strings.TrimPrefix(r.URL.Path, "/xrpc/")

		p.mu.Lock()
		p.calls[nsid]++
		h := p.holds[nsid]
		delete(p.holds, nsid)
		p.mu.Unlock()

		if h != nil {
			close(h.reached)
			select {
			case <-h.release:
			case <-r.Context().Done():
				return
			}
		}

		p.mu.Lock()
		f, failing := p.failures[nsid]
		p.mu.Unlock()

		if failing {
			writeError(w, f.status, f.code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorize resolves the bearer token of r; it must be a refresh token iff
// refresh is set.
func (p *PDS) authorize(w http.ResponseWriter, r *http.Request, refresh bool) (*account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		writeError(w, http.StatusUnauthorized, atproto.ErrorAuthMissing, "Authentication Required")
		return nil, false
	}

	g, ok := p.tokens[token]
	if !ok || g.refresh != refresh {
		writeError(w, http.StatusUnauthorized, atproto.ErrorInvalidToken, "Token could not be verified")
		return nil, false
	}

	return p.accounts[g.did], true
}

func (p *PDS) createSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Invalid body")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, a := range p.accounts {
		if (a.Handle == in.Identifier || a.DID == in.Identifier) && a.Password == in.Password {
			writeJSON(w, p.issue(a))
			return
		}
	}
	writeError(w, http.StatusUnauthorized, atproto.ErrorAuthRequired, "Invalid identifier or password")
}

func (p *PDS) getSession(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.authorize(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, atproto.SessionInfo{Handle: a.Handle, DID: a.DID})
}

func (p *PDS) refreshSession(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// The presented token stays valid, like a real PDS inside its refresh
	// grace period. Tests invalidate it explicitly with Revoke.
	a, ok := p.authorize(w, r, true)
	if !ok {
		return
	}
	writeJSON(w, p.issue(a))
}

func (p *PDS) getProfile(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.authorize(w, r, false); !ok {
		return
	}

	actor := r.URL.Query().Get("actor")
	for _, a := range p.accounts {
		if a.Handle == actor || a.DID == actor {
			writeJSON(w, atproto.Profile{DID: a.DID, Handle: a.Handle, Avatar: a.Avatar})
			return
		}
	}
	writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Profile not found")
}

func (p *PDS) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Invalid limit")
			return
		}
		limit = n
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[q.Get("repo")]
	if !ok {
		writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Could not find repo")
		return
	}

	posts := slices.Clone(a.posts)
	if q.Get("collection") != atproto.CollectionPost {
		posts = nil
	}
	reverse := q.Get("reverse") == "true"
	if !reverse {
		slices.Reverse(posts)
	}

	cursor := q.Get("cursor")
	out := atproto.ListRecordsOutput{Records: []atproto.Record{}}
	for _, post := range posts {
		if cursor != "" && ((reverse && post.Rkey <= cursor) || (!reverse && post.Rkey >= cursor)) {
			continue
		}
		if len(out.Records) == limit {
			break
		}

		createdAt := post.RawCreatedAt
		if createdAt == "" {
			createdAt = post.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		value, _ := json.Marshal(map[string]string{
			"$type":     atproto.CollectionPost,
			"text":      "post " + post.Rkey,
			"createdAt": createdAt,
		})

		out.Records = append(out.Records, atproto.Record{
			URI:   atproto.ATURI{Repo: a.DID, Collection: atproto.CollectionPost, Rkey: post.Rkey}.String(),
			Value: value,
		})
		out.Cursor = post.Rkey
	}

	writeJSON(w, out)
}

func (p *PDS) applyWrites(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Repo   string `json:"repo"`
		Writes []struct {
			Type       string `json:"$type"`
			Collection string `json:"collection"`
			Rkey       string `json:"rkey"`
		} `json:"writes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Invalid body")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.authorize(w, r, false)
	if !ok {
		return
	}
	if in.Repo != a.DID {
		writeError(w, http.StatusUnauthorized, atproto.ErrorInvalidToken, "Token does not match repo")
		return
	}

	for _, write := range in.Writes {
		if write.Type != "com.atproto.repo.applyWrites#delete" || write.Collection != atproto.CollectionPost {
			writeError(w, http.StatusBadRequest, atproto.ErrorInvalidRequest, "Unsupported write")
			return
		}
	}

	for _, write := range in.Writes {
		i := slices.IndexFunc(a.posts, func(post Post) bool { return post.Rkey == write.Rkey })
		if i < 0 {
			continue
		}
		a.posts = slices.Delete(a.posts, i, i+1)
		a.deleted = append(a.deleted, write.Rkey)
	}

	writeJSON(w, map[string]any{"results": []any{}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(atproto.Error{Code: code, Message: message})
}
