// Package stats defines how player statistics are fetched for roster
// entries: a Provider interface, a fallback Chain, an expiring LRU Cache
// and a bounded batch Lookup.
//
// No concrete stats service is built in. HTTPProvider covers any JSON
// endpoint that returns a Stats document per player name.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a provider has no stats for a name.
	// A nicked player usually ends up here.
	ErrNotFound = errors.New("player not found")

	// ErrRateLimited is returned when a provider refuses to answer for now.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoProviders is returned by an empty Chain.
	ErrNoProviders = errors.New("no stats providers")
)

// Stats is the Bedwars record of one player as reported by a provider.
// Values are passed through as reported.
type Stats struct {
	Name        string    `json:"name"`
	UUID        string    `json:"uuid,omitempty"`
	Stars       int       `json:"stars"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	FinalKills  int       `json:"final_kills"`
	FinalDeaths int       `json:"final_deaths"`
	BedsBroken  int       `json:"beds_broken"`
	BedsLost    int       `json:"beds_lost"`
	Winstreak   *int      `json:"winstreak,omitempty"` // nil when hidden
	Provider    string    `json:"provider,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Provider fetches stats for a single player name.
type Provider interface {
	// Name identifies the provider in errors and Stats.Provider.
	Name() string

	// Fetch returns the stats of name or an error wrapping ErrNotFound,
	// ErrRateLimited or a transport failure.
	Fetch(ctx context.Context, name string) (Stats, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, name string) (Stats, error)

// Name returns "func".
func (f ProviderFunc) Name() string { return "func" }

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, name string) (Stats, error) {
	return f(ctx, name)
}

// ProviderError records which provider failed.
type ProviderError struct {
	Provider string
	Name     string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stats %s %s: %v", e.Provider, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Chain asks each provider in order and returns the first success.
// If every provider fails the errors are joined.
type Chain []Provider

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

// Fetch implements Provider.
func (c Chain) Fetch(ctx context.Context, name string) (Stats, error) {
	if len(c) == 0 {
		return Stats{}, ErrNoProviders
	}
	var errs []error
	for _, p := range c {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		s, err := p.Fetch(ctx, name)
		if err == nil {
			if s.Provider == "" {
				s.Provider = p.Name()
			}
			return s, nil
		}
		errs = append(errs, &ProviderError{Provider: p.Name(), Name: name, Err: err})
	}
	return Stats{}, errors.Join(errs...)
}

// key folds player names the way the roster does.
func key(name string) string {
	return strings.ToLower(name)
}
