// Package orderkey mints and resolves encrypted, expiring order references used
// on guest order-received pages.
package orderkey

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"checkout-engine/internal/model"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
)

const (
	idSeparator     = "__"
	expirySeparator = ":"
)

// Codec encrypts order keys with a key derived from a server secret.
type Codec struct {
	key []byte
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec derives a 256-bit content key from secret.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("order key secret is required")
	}
	sum := sha256.Sum256([]byte(secret))
	c := &Codec{key: sum[:], now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint returns an opaque token for the order that stops resolving after ttl.
func (c *Codec) Mint(orderID uuid.UUID, publicID string, ttl time.Duration) (string, error) {
	expiry := c.now().Add(ttl).UnixMilli()
	payload := fmt.Sprintf("%s%s%s%s%d", orderID, idSeparator, publicID, expirySeparator, expiry)

	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: c.key}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create order key encrypter: %w", err)
	}
	obj, err := enc.Encrypt([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt order key: %w", err)
	}
	token, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialise order key: %w", err)
	}
	return token, nil
}

// Resolve decrypts a token. Tampered, malformed and expired tokens all return
// model.ErrInvalidOrderKey so callers cannot tell them apart.
func (c *Codec) Resolve(token string) (model.OrderKeyClaims, error) {
	obj, err := jose.ParseEncrypted(strings.TrimSpace(token),
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return model.OrderKeyClaims{}, model.ErrInvalidOrderKey
	}
	plain, err := obj.Decrypt(c.key)
	if err != nil {
		return model.OrderKeyClaims{}, model.ErrInvalidOrderKey
	}

	claims, ok := parsePayload(string(plain))
	if !ok {
		return model.OrderKeyClaims{}, model.ErrInvalidOrderKey
	}
	if c.now().After(claims.ExpiresAt) {
		return model.OrderKeyClaims{}, model.ErrInvalidOrderKey
	}
	return claims, nil
}

func parsePayload(payload string) (model.OrderKeyClaims, bool) {
	i := strings.LastIndex(payload, expirySeparator)
	if i < 0 {
		return model.OrderKeyClaims{}, false
	}
	ids, rawExpiry := payload[:i], payload[i+1:]

	expiry, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return model.OrderKeyClaims{}, false
	}

	rawID, publicID, ok := strings.Cut(ids, idSeparator)
	if !ok || publicID == "" {
		return model.OrderKeyClaims{}, false
	}
	orderID, err := uuid.Parse(rawID)
	if err != nil {
		return model.OrderKeyClaims{}, false
	}

	return model.OrderKeyClaims{
		OrderID:   orderID,
		PublicID:  publicID,
		ExpiresAt: time.UnixMilli(expiry),
	}, true
}
