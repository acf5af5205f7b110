package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// static returns a provider answering from a fixed table.
func static(name string, table map[string]Stats) Provider {
	return namedFunc{name: name, fn: func(_ context.Context, n string) (Stats, error) {
		s, ok := table[key(n)]
		if !ok {
			return Stats{}, ErrNotFound
		}
		return s, nil
	}}
}

type namedFunc struct {
	name string
	fn   ProviderFunc
}

func (p namedFunc) Name() string { return p.name }

func (p namedFunc) Fetch(ctx context.Context, name string) (Stats, error) {
	return p.fn(ctx, name)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	chain := Chain{
		static("primary", map[string]Stats{"alice": {Name: "Alice", Stars: 100}}),
		static("fallback", map[string]Stats{
			"alice": {Name: "Alice", Stars: 1},
			"bob":   {Name: "Bob", Stars: 42},
		}),
	}

	s, err := chain.Fetch(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 100, s.Stars)
	assert.Equal(t, "primary", s.Provider)

	s, err = chain.Fetch(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, 42, s.Stars)
	assert.Equal(t, "fallback", s.Provider)
}

func TestChain_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	chain := Chain{
		static("primary", nil),
		namedFunc{name: "broken", fn: func(context.Context, string) (Stats, error) {
			return Stats{}, boom
		}},
	}

	_, err := chain.Fetch(context.Background(), "Nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, boom)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "primary", pe.Provider)
	assert.Equal(t, "Nobody", pe.Name)
	assert.Contains(t, err.Error(), "stats broken Nobody: boom")
}

func TestChain_Empty(t *testing.T) {
	_, err := Chain{}.Fetch(context.Background(), "Alice")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestChain_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Chain{static("p", nil)}.Fetch(ctx, "Alice")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderFunc(t *testing.T) {
	p := ProviderFunc(func(_ context.Context, name string) (Stats, error) {
		return Stats{Name: name, Wins: 3}, nil
	})
	assert.Equal(t, "func", p.Name())

	s, err := p.Fetch(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Wins)
}
