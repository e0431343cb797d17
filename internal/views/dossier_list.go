package views

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/querycache"
)

// DossierLister is the part of the client the list view needs.
type DossierLister interface {
	ListDossiers(ctx context.Context, req *client.ListDossiersRequest) (*client.ListDossiersResponse, error)
}

// Filter selects the dossiers shown by the list. It is either FilterAll or a
// status wire value.
type Filter string

const FilterAll Filter = "ALL"

// Filters lists the filter states in display order.
func Filters() []Filter {
	out := []Filter{FilterAll}
	for _, s := range model.Statuses {
		out = append(out, Filter(s))
	}
	return out
}

// ParseFilter accepts "ALL" (any case, or empty) and anything ParseStatus accepts.
func ParseFilter(v string) (Filter, error) {
	if v == "" || strings.EqualFold(v, string(FilterAll)) {
		return FilterAll, nil
	}
	s, ok := model.ParseStatus(v)
	if !ok {
		return "", fmt.Errorf("invalid filter %q", v)
	}
	return Filter(s), nil
}

// Label returns the text shown on the filter tab.
func (f Filter) Label() string {
	if f == FilterAll {
		return "All"
	}
	return model.Status(f).Label()
}

// FilterDossiers returns the dossiers whose status equals f, in input order.
// FilterAll returns ds unchanged.
func FilterDossiers(ds []*model.Dossier, f Filter) []*model.Dossier {
	if f == FilterAll {
		return slices.Clone(ds)
	}
	out := make([]*model.Dossier, 0, len(ds))
	for _, d := range ds {
		if d.Status == model.Status(f) {
			out = append(out, d)
		}
	}
	return out
}

// Column is one stage of the board.
type Column struct {
	Stage    model.Stage
	Dossiers []*model.Dossier
}

// BoardColumns groups dossiers by kanban stage, one column per stage in
// pipeline order. Dossiers keep their input order within a column.
func BoardColumns(ds []*model.Dossier) []Column {
	index := make(map[model.Stage]int, len(model.Stages))
	cols := make([]Column, len(model.Stages))
	for i, st := range model.Stages {
		cols[i].Stage = st
		index[st] = i
	}
	for _, d := range ds {
		if i, ok := index[d.Stage]; ok {
			cols[i].Dossiers = append(cols[i].Dossiers, d)
		}
	}
	return cols
}

// DossierList is the dossier list screen.
type DossierList struct {
	cache *querycache.Cache
	api   DossierLister

	mu     sync.Mutex
	all    []*model.Dossier
	filter Filter
	loaded bool
}

// NewDossierList returns a list showing every dossier.
func NewDossierList(cache *querycache.Cache, api DossierLister) *DossierList {
	return &DossierList{cache: cache, api: api, filter: FilterAll}
}

func (l *DossierList) fetch(ctx context.Context) (any, error) {
	resp, err := l.api.ListDossiers(ctx, &client.ListDossiersRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Dossiers, nil
}

func (l *DossierList) store(v any) {
	ds, _ := v.([]*model.Dossier)
	l.mu.Lock()
	l.all = ds
	l.loaded = true
	l.mu.Unlock()
}

// Load reads the dossiers through the cache. A failure is returned as is;
// the list keeps whatever it showed before.
func (l *DossierList) Load(ctx context.Context) error {
	v, err := l.cache.Fetch(ctx, querycache.KeyDossiers, l.fetch)
	if err != nil {
		return fmt.Errorf("load dossiers: %w", err)
	}
	l.store(v)
	return nil
}

// Refresh forces a re-fetch. Children call it after a successful mutation.
func (l *DossierList) Refresh(ctx context.Context) error {
	l.cache.Invalidate(querycache.KeyDossiers)
	return l.Load(ctx)
}

// Mount keeps the list current: it loads now and again whenever the
// dossiers key is invalidated. onChange, if set, runs after each update.
func (l *DossierList) Mount(onChange func(error)) *querycache.Subscription {
	return l.cache.Mount(querycache.KeyDossiers, l.fetch, querycache.MountOptions{
		OnResult: func(v any, err error) {
			if err == nil {
				l.store(v)
			}
			if onChange != nil {
				onChange(err)
			}
		},
	})
}

// SetFilter changes the displayed subset; it does not fetch.
func (l *DossierList) SetFilter(f Filter) {
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
}

// Filter returns the active filter.
func (l *DossierList) Filter() Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Loaded reports whether a load has succeeded.
func (l *DossierList) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Visible returns the dossiers matching the active filter.
func (l *DossierList) Visible() []*model.Dossier {
	l.mu.Lock()
	defer l.mu.Unlock()
	return FilterDossiers(l.all, l.filter)
}

// Board returns the visible dossiers grouped by stage.
func (l *DossierList) Board() []Column {
	return BoardColumns(l.Visible())
}

// Total is the number of loaded dossiers regardless of the filter.
func (l *DossierList) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.all)
}
