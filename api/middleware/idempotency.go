package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/siver-b2b-backend/api/responses"
	"github.com/angelmondragon/siver-b2b-backend/api/validators"
	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/siver-b2b-backend/pkg/redis"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	// idempotencyLease bounds how long an unfinished request holds its key.
	idempotencyLease = 2 * time.Minute

	maxIdempotencyKeyLength = 255
)

type idempotencyRule struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, match: matchExact("/api/v1/checkout"), ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/admin/orders/", "/mark-paid"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: matchPrefixSuffix("/api/v1/admin/orders/", "/reject"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: matchExact("/api/v1/admin/products/import"), ttl: defaultIdempotencyTTL},
}

type recordState string

const (
	statePending recordState = "pending"
	stateDone    recordState = "done"
)

// idempotencyRecord is stored under the key. A pending record reserves the
// key while the first request runs; a done record holds its response.
type idempotencyRecord struct {
	State       recordState `json:"state"`
	RequestHash string      `json:"request_hash"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Idempotency replays the stored response of a write retried with the same
// Idempotency-Key and body. Requests without the header run normally. 5xx
// responses release the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// raw path: chi resolves the subrouter pattern after middleware runs
			ttl, ok := routeTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLength {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header is too long"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			guard := idempotencyGuard{
				store: store,
				logg:  logg,
				key:   store.IdempotencyKey(idempotencyScope(r), clientKey),
				hash:  hashBody(body),
			}

			stored, err := guard.reserve(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if stored != nil {
				w.Header().Set(replayedHeader, "true")
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				guard.release(ctx)
				return
			}
			guard.complete(ctx, capture, ttl)
		})
	}
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
	key   string
	hash  string
}

// reserve claims the key for this request. It returns the stored response
// when the same request already completed, or an IDEMPOTENCY_KEY_REUSED
// error when the key is in flight or was used with another body.
func (g idempotencyGuard) reserve(ctx context.Context) (*idempotencyRecord, error) {
	pending, err := json.Marshal(idempotencyRecord{State: statePending, RequestHash: g.hash})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency reservation")
	}
	reserved, err := g.store.SetNX(ctx, g.key, string(pending), idempotencyLease)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	if reserved {
		return nil, nil
	}

	raw, err := g.store.Get(ctx, g.key)
	if errors.Is(err, redis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record")
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}

	switch {
	case record.RequestHash != g.hash:
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case record.State != stateDone:
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this Idempotency-Key is still in progress")
	}
	return &record, nil
}

func (g idempotencyGuard) complete(ctx context.Context, capture *responseCapture, ttl time.Duration) {
	payload, err := json.Marshal(idempotencyRecord{
		State:       stateDone,
		RequestHash: g.hash,
		Status:      capture.statusCode(),
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = g.store.Set(ctx, g.key, string(payload), ttl)
	}
	if err != nil && g.logg != nil {
		g.logg.Error(ctx, "persist idempotency record", err)
	}
}

func (g idempotencyGuard) release(ctx context.Context) {
	if err := g.store.Del(ctx, g.key); err != nil && g.logg != nil {
		g.logg.Error(ctx, "release idempotency key", err)
	}
}

// idempotencyScope keeps keys from colliding across users and endpoints.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func routeTTL(method, path string) (time.Duration, bool) {
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchExact(want string) func(string) bool {
	return func(path string) bool { return strings.TrimSuffix(path, "/") == want }
}

func matchPrefixSuffix(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
