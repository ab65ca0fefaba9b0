package trade

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/moria-tools/moria-manager/internal/fsops"
	"github.com/moria-tools/moria-manager/internal/operr"
)

const ledgerName = "trade.json"

// MaxQuantity caps per-order quantities; out-of-range values clamp,
// they never error.
const MaxQuantity = 9999

// State is what the ledger persists per item.
type State struct {
	DisplayName string `json:"display_name,omitempty"`
	Completed   bool   `json:"completed"`
	Quantity    int    `json:"quantity"`
}

// Entry is one checklist line: catalog order plus its persisted state.
// Orphaned entries have ledger state but no catalog order behind them,
// usually after a game update renames an item. They are kept, not dropped.
type Entry struct {
	ItemID      string
	DisplayName string
	Completed   bool
	Quantity    int
	Orphaned    bool
}

// Ledger is the persisted trade checklist merged with a catalog.
type Ledger struct {
	mu      sync.Mutex
	path    string
	catalog Catalog
	states  map[string]State
}

// Load reads the checklist from dir and merges it with the catalog.
// A missing file is an empty checklist, not an error.
func Load(dir string, catalog Catalog) (*Ledger, error) {
	l := &Ledger{
		path:    filepath.Join(dir, ledgerName),
		catalog: catalog,
		states:  make(map[string]State),
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading trade checklist: %w", err)
		}
	} else if err := json.Unmarshal(data, &l.states); err != nil {
		return nil, fmt.Errorf("parsing trade checklist %s: %w", l.path, err)
	}

	// Catalog orders without state start unchecked at zero.
	for _, o := range catalog.Orders() {
		st, ok := l.states[o.ItemID]
		if !ok {
			st = State{}
		}
		st.DisplayName = o.DisplayName
		l.states[o.ItemID] = st
	}
	return l, nil
}

// Entries lists the checklist in catalog order, orphans last.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.states))
	var entries []Entry
	for _, o := range l.catalog.Orders() {
		st := l.states[o.ItemID]
		seen[o.ItemID] = true
		entries = append(entries, Entry{
			ItemID:      o.ItemID,
			DisplayName: o.DisplayName,
			Completed:   st.Completed,
			Quantity:    st.Quantity,
		})
	}

	var orphans []Entry
	for id, st := range l.states {
		if seen[id] {
			continue
		}
		name := st.DisplayName
		if name == "" {
			name = id
		}
		orphans = append(orphans, Entry{
			ItemID:      id,
			DisplayName: name,
			Completed:   st.Completed,
			Quantity:    st.Quantity,
			Orphaned:    true,
		})
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].ItemID < orphans[j].ItemID })
	return append(entries, orphans...)
}

// Get returns one checklist entry.
func (l *Ledger) Get(itemID string) (Entry, bool) {
	for _, e := range l.Entries() {
		if e.ItemID == itemID {
			return e, true
		}
	}
	return Entry{}, false
}

// Merchants lists the catalog merchants with their checklist state.
func (l *Ledger) Merchants() []Merchant {
	return l.catalog.Merchants
}

// SetCompleted marks an order done or not done.
func (l *Ledger) SetCompleted(itemID string, done bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[itemID]
	if !ok {
		return operr.New("trade check", itemID, l.path, operr.ErrPathNotFound, nil)
	}
	st.Completed = done
	l.states[itemID] = st
	return nil
}

// SetQuantity records how many of an item are on hand. Values outside
// [0, MaxQuantity] clamp to the nearest bound.
func (l *Ledger) SetQuantity(itemID string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[itemID]
	if !ok {
		return operr.New("trade qty", itemID, l.path, operr.ErrPathNotFound, nil)
	}
	if n < 0 {
		n = 0
	}
	if n > MaxQuantity {
		n = MaxQuantity
	}
	st.Quantity = n
	l.states[itemID] = st
	return nil
}

// ClearAll resets every catalog-backed entry. Orphaned entries keep
// their state.
func (l *Ledger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, o := range l.catalog.Orders() {
		st := l.states[o.ItemID]
		st.Completed = false
		st.Quantity = 0
		l.states[o.ItemID] = st
	}
}

// Persist writes the checklist document atomically.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.MarshalIndent(l.states, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trade checklist: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	return fsops.WriteFileAtomic(l.path, data, 0o644)
}
