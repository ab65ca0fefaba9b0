// Package trade tracks which merchant orders have been fulfilled. The
// order catalog ships embedded; checklist state persists as a JSON
// document in the config directory.
package trade

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	textunicode "golang.org/x/text/encoding/unicode"
)

// Order is one item a merchant buys.
type Order struct {
	ItemID      string
	DisplayName string
}

// Merchant groups the orders of one trading partner.
type Merchant struct {
	ID          string
	DisplayName string
	Orders      []Order
}

// Catalog is the ordered list of merchants and what they buy.
type Catalog struct {
	Merchants []Merchant
}

// Orders flattens the catalog in merchant order.
func (c Catalog) Orders() []Order {
	var all []Order
	for _, m := range c.Merchants {
		all = append(all, m.Orders...)
	}
	return all
}

// Find returns the order with the given item id.
func (c Catalog) Find(itemID string) (Order, bool) {
	for _, m := range c.Merchants {
		for _, o := range m.Orders {
			if o.ItemID == itemID {
				return o, true
			}
		}
	}
	return Order{}, false
}

// DefaultCatalog returns the embedded merchant and order data.
func DefaultCatalog() Catalog {
	merchants := make([]Merchant, 0, len(merchantsData))
	for _, m := range merchantsData {
		orders := make([]Order, 0, len(m.orders))
		for _, o := range m.orders {
			orders = append(orders, Order{ItemID: o[0], DisplayName: o[1]})
		}
		merchants = append(merchants, Merchant{ID: m.id, DisplayName: m.displayName, Orders: orders})
	}
	return Catalog{Merchants: merchants}
}

// deckRow matches one merchant row of an exported order-deck file.
type deckRow struct {
	Name   string   `json:"Name"`
	Orders []string `json:"Orders"`
}

// LoadCatalogFile reads a game-exported order-deck JSON file. The game
// writes these as UTF-16 without warning, so the bytes are decoded
// (BOM-sensed, little-endian when absent) before unmarshalling.
func LoadCatalogFile(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}
	data, err := decodeCatalogBytes(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	var rows []deckRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return Catalog{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	var cat Catalog
	for _, row := range rows {
		m := Merchant{ID: row.Name, DisplayName: humanize(row.Name)}
		for _, id := range row.Orders {
			m.Orders = append(m.Orders, Order{ItemID: id, DisplayName: humanize(id)})
		}
		cat.Merchants = append(cat.Merchants, m)
	}
	return cat, nil
}

func decodeCatalogBytes(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], nil
	case len(data) >= 2 && (data[0] == 0xFF || data[0] == 0xFE || data[1] == 0x00):
		dec := textunicode.UTF16(textunicode.LittleEndian, textunicode.UseBOM).NewDecoder()
		return dec.Bytes(data)
	default:
		return data, nil
	}
}

// humanize turns an identifier like "CarvedMuralSections_Order_Default"
// into "Carved Mural Sections".
func humanize(raw string) string {
	name := strings.TrimSuffix(raw, "_Order_Default")
	name = strings.TrimSuffix(name, "_Default")
	name = strings.TrimSuffix(name, "Orders")

	var b strings.Builder
	var prev rune
	for i, r := range name {
		if r == '_' {
			r = ' '
		}
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.TrimSpace(b.String())
}
