package services

import (
	"fmt"
	"time"

	"ecopark-admin/internal/models"
	"ecopark-admin/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

const cursorTTL = 24 * time.Hour

// cursorClaims carry the last-seen sort key together with the filter the
// page was produced for
type cursorClaims struct {
	Reviewed  bool   `json:"rev"`
	Category  string `json:"cat,omitempty"`
	Sort      string `json:"sort"`
	Timestamp string `json:"ts,omitempty"`
	Name      string `json:"name,omitempty"`
	ID        string `json:"pid"`
	jwt.RegisteredClaims
}

// CursorCodec signs and verifies pagination cursors
type CursorCodec struct {
	secret []byte
	now    func() time.Time
}

// NewCursorCodec creates a codec signing with secret
func NewCursorCodec(secret string) *CursorCodec {
	return &CursorCodec{secret: []byte(secret), now: time.Now}
}

// Encode returns an opaque cursor pointing after last
func (c *CursorCodec) Encode(req ListPhotosRequest, last *models.Photo) (string, error) {
	now := c.now()
	claims := cursorClaims{
		Reviewed: req.Reviewed,
		Category: string(req.Category),
		Sort:     req.Sort,
		ID:       last.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cursorTTL)),
		},
	}
	if req.Sort == repository.SortByName {
		claims.Name = last.Name
	} else {
		claims.Timestamp = last.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign cursor: %w", err)
	}
	return signed, nil
}

// Decode verifies a cursor and checks it was issued for the same filter as req
func (c *CursorCodec) Decode(cursor string, req ListPhotosRequest) (*repository.PageKey, error) {
	var claims cursorClaims
	_, err := jwt.ParseWithClaims(cursor, &claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	if claims.Reviewed != req.Reviewed || claims.Category != string(req.Category) || claims.Sort != req.Sort {
		return nil, fmt.Errorf("%w: issued for a different filter", ErrInvalidCursor)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidCursor)
	}

	key := &repository.PageKey{ID: claims.ID, Name: claims.Name}
	if claims.Sort != repository.SortByName {
		ts, err := time.Parse(time.RFC3339Nano, claims.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
		}
		key.Timestamp = ts
	}
	return key, nil
}
