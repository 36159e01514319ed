package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/siver-b2b-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	keysetPrefix = "k:"
	offsetPrefix = "o:"
)

// Params is the raw page request taken from the query string.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points at the last row of the previous page in created_at DESC, id DESC order.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one extra row so the caller can tell whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor returns an opaque, URL safe cursor.
func EncodeCursor(cursor Cursor) string {
	raw := keysetPrefix + cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses EncodeCursor. A blank value means the first page and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	body, err := decode(value, keysetPrefix)
	if err != nil || body == "" {
		return nil, err
	}
	stamp, id, ok := strings.Cut(body, "|")
	if !ok {
		return nil, invalidCursor(nil)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, invalidCursor(err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidCursor(err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// EncodeOffset is the cursor for sort orders that cannot use a keyset.
func EncodeOffset(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(offsetPrefix + strconv.Itoa(offset)))
}

// ParseOffset reverses EncodeOffset. A blank value yields 0.
func ParseOffset(value string) (int, error) {
	body, err := decode(value, offsetPrefix)
	if err != nil || body == "" {
		return 0, err
	}
	offset, err := strconv.Atoi(body)
	if err != nil || offset < 0 {
		return 0, invalidCursor(err)
	}
	return offset, nil
}

func decode(value, prefix string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", invalidCursor(err)
	}
	body, ok := strings.CutPrefix(string(raw), prefix)
	if !ok || body == "" {
		return "", invalidCursor(nil)
	}
	return body, nil
}

func invalidCursor(cause error) error {
	if cause == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, "invalid cursor")
}

// Keyset is a parsed newest-first page request.
type Keyset struct {
	Limit int
	After *Cursor
}

// NewKeyset validates params. Cursor errors carry CodeValidation.
func NewKeyset(params Params) (Keyset, error) {
	after, err := ParseCursor(params.Cursor)
	if err != nil {
		return Keyset{}, err
	}
	return Keyset{Limit: NormalizeLimit(params.Limit), After: after}, nil
}

// Apply adds the cursor predicate, the created_at/id ordering and the buffered limit.
func (k Keyset) Apply(qb *gorm.DB) *gorm.DB {
	if k.After != nil {
		qb = qb.Where("((created_at < ?) OR (created_at = ? AND id < ?))", k.After.CreatedAt, k.After.CreatedAt, k.After.ID)
	}
	return qb.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(k.Limit))
}

// Trim drops the buffer row and returns the cursor of the next page, or "" on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}
