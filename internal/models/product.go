package models

// Category sentinels used by the catalog source and the search filter.
const (
	CategoryGeneral = "عمومی"
	CategoryAll     = "all"
	CategoryAllFa   = "همه"
)

// Product is a normalized catalog record. Only Stock changes after load.
type Product struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Code            string   `json:"code"`
	Description     string   `json:"description"`
	FullDescription string   `json:"fullDescription"`
	Price           Amount   `json:"price"`
	PriceText       string   `json:"priceText"`
	Stock           int      `json:"stock"`
	Category        string   `json:"category"`
	Images          []string `json:"images"`
}

func (p Product) Clone() Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

// IsAllCategory reports whether category bypasses category filtering.
func IsAllCategory(category string) bool {
	return category == "" || category == CategoryAll || category == CategoryAllFa
}

func CloneProducts(in []Product) []Product {
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
