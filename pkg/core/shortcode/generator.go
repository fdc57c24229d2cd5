package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
)

const (
	DefaultLength      = 6
	DefaultMaxAttempts = 10
	DefaultMaxLength   = 20
)

// ExistsFunc reports whether a code is already taken. It must only read.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator draws random codes and checks them against an ExistsFunc. It keeps no
// state between calls.
type Generator struct {
	exists      ExistsFunc
	maxAttempts int
	maxLength   int
	random      io.Reader
}

type Option func(*Generator)

// WithMaxAttempts sets how many candidates are tried at each length.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithMaxLength caps the length growth after repeated collisions.
func WithMaxLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxLength = n
		}
	}
}

// WithRandom replaces crypto/rand as the entropy source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

func NewGenerator(exists ExistsFunc, opts ...Option) *Generator {
	g := &Generator{
		exists:      exists,
		maxAttempts: DefaultMaxAttempts,
		maxLength:   DefaultMaxLength,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Random returns a code of at least length symbols that the ExistsFunc reports as
// free. After maxAttempts collisions the length grows by one, up to maxLength.
func (g *Generator) Random(ctx context.Context, length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	for ; length <= g.maxLength; length++ {
		for attempt := 0; attempt < g.maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			code, err := g.draw(length)
			if err != nil {
				return "", err
			}
			if g.exists == nil {
				return code, nil
			}
			taken, err := g.exists(ctx, code)
			if err != nil {
				return "", err
			}
			if !taken {
				return code, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no free code up to length %d", domain.ErrGenerationExhausted, g.maxLength)
}

func (g *Generator) draw(length int) (string, error) {
	b := make([]byte, length)
	symbols := big.NewInt(int64(len(Alphabet)))
	for i := range b {
		num, err := rand.Int(g.random, symbols)
		if err != nil {
			return "", errors.Join(errors.New("read random source"), err)
		}
		b[i] = Alphabet[num.Int64()]
	}
	return string(b), nil
}
