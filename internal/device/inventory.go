package device

import (
	"strings"

	"github.com/jaypipes/ghw"
)

// Card is a GPU as seen by the PCI inventory.
type Card struct {
	Index  int
	Vendor string
	Name   string
}

// Inventory lists graphics cards through ghw. Callers treat an error as
// "names unknown"; free memory always comes from the Querier.
func Inventory() ([]Card, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}
	var cards []Card
	for _, gc := range info.GraphicsCards {
		if gc == nil {
			continue
		}
		c := Card{Index: gc.Index}
		if di := gc.DeviceInfo; di != nil {
			if di.Vendor != nil {
				c.Vendor = strings.TrimSpace(di.Vendor.Name)
			}
			if di.Product != nil {
				c.Name = strings.TrimSpace(di.Product.Name)
			}
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// NameFor returns the product name of the index-th card matching vendor (case-insensitive
// substring; "" matches any), or "" when unknown.
func NameFor(cards []Card, vendor string, index int) string {
	n := 0
	for _, c := range cards {
		if vendor != "" && !strings.Contains(strings.ToLower(c.Vendor), strings.ToLower(vendor)) {
			continue
		}
		if n == index {
			return c.Name
		}
		n++
	}
	return ""
}
