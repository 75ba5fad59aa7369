package pipeline

import (
	"context"
	"sort"

	"github.com/gdownersigma/c21-commodities/logger"
)

// WatchlistSource yields the distinct symbols present in any user's
// watch-list.
type WatchlistSource interface {
	WatchedSymbols(ctx context.Context) ([]string, error)
}

// SymbolRegistry resolves the set of symbols to fetch this run: the
// configured defaults plus everything any user watches, resolved fresh on
// every call.
type SymbolRegistry struct {
	defaults  []string
	watchlist WatchlistSource
}

func NewSymbolRegistry(defaults []string, watchlist WatchlistSource) *SymbolRegistry {
	return &SymbolRegistry{defaults: defaults, watchlist: watchlist}
}

// ResolveTrackedSymbols returns the union of the default set and the
// watch-list, defaults first in configured order, watch-list additions
// sorted after. The result is always a superset of the defaults: a failing
// watch-list query degrades to the defaults instead of failing the run. An
// empty default set is a ConfigurationError.
func (r *SymbolRegistry) ResolveTrackedSymbols(ctx context.Context) ([]string, error) {
	if len(r.defaults) == 0 {
		return nil, &ConfigurationError{Reason: "default symbol set is empty"}
	}

	seen := make(map[string]struct{}, len(r.defaults))
	symbols := make([]string, 0, len(r.defaults))
	for _, s := range r.defaults {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		symbols = append(symbols, s)
	}

	watched, err := r.watchlist.WatchedSymbols(ctx)
	if err != nil {
		logger.Warn("Watch-list query failed, tracking defaults only: %s", err)
		return symbols, nil
	}

	extra := make([]string, 0, len(watched))
	for _, s := range watched {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		extra = append(extra, s)
	}
	sort.Strings(extra)

	return append(symbols, extra...), nil
}
