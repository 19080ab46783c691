package airtable

import (
	"strconv"
	"strings"

	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/pkg/util"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
)

const (
	defaultDescription = "بدون توضیح"
	defaultPrice       = "0 افغانی"
)

var (
	nameFields            = []string{"نام", "Name", "Product Name"}
	codeFields            = []string{"کود", "Code", "Product Code"}
	descriptionFields     = []string{"توضیح", "Description", "توضیحات"}
	fullDescriptionFields = []string{"توضیح کامل", "Full Description", "توضیحات کامل"}
	priceFields           = []string{"قیمت", "Price", "قیمت (افغانی)"}
	stockFields           = []string{"موجودی", "Stock", "تعداد"}
	categoryFields        = []string{"دسته‌بندی", "Category", "دسته"}

	imageKeywords = []string{"image", "photo", "pic", "تصویر", "عکس"}
)

type field struct {
	name  string
	value gjson.Result
}

// recordFields keeps the source field order, which decides image order.
type recordFields struct {
	ordered []field
	byName  map[string]gjson.Result
}

func parseFields(raw gjson.Result) recordFields {
	rf := recordFields{byName: make(map[string]gjson.Result)}
	raw.ForEach(func(key, value gjson.Result) bool {
		rf.ordered = append(rf.ordered, field{name: key.String(), value: value})
		rf.byName[key.String()] = value
		return true
	})
	return rf
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	default:
		return v.Exists()
	}
}

// first returns the first truthy value among names.
func (rf recordFields) first(names ...string) (gjson.Result, bool) {
	for _, name := range names {
		if v, ok := rf.byName[name]; ok && truthy(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func (rf recordFields) text(def string, names ...string) string {
	if v, ok := rf.first(names...); ok {
		return v.String()
	}
	return def
}

// parseStock reads the leading integer of the value; anything else is 0.
func parseStock(v gjson.Result) int {
	if v.Type == gjson.Number {
		n := cast.ToInt(v.Num)
		if n < 0 {
			return 0
		}
		return n
	}
	s := strings.TrimSpace(v.String())
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isImageFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range imageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func looksLikeAttachmentList(v gjson.Result) bool {
	return v.IsArray() && v.Get("0.url").Exists()
}

func attachmentURLs(v gjson.Result) []string {
	var urls []string
	switch {
	case v.IsArray():
		for _, item := range v.Array() {
			if u := item.Get("url").String(); u != "" {
				urls = append(urls, u)
			}
		}
	case v.IsObject():
		if u := v.Get("url").String(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func collectImages(rf recordFields) []string {
	seen := make(map[string]struct{})
	images := make([]string, 0)
	for _, f := range rf.ordered {
		if !isImageFieldName(f.name) && !looksLikeAttachmentList(f.value) {
			continue
		}
		for _, u := range attachmentURLs(f.value) {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			images = append(images, u)
		}
	}
	return images
}

// NormalizeRecord maps one Airtable record to a product. It reports false when the
// record has no recognized name field.
func NormalizeRecord(id string, rawFields gjson.Result) (models.Product, bool) {
	rf := parseFields(rawFields)

	name, ok := rf.first(nameFields...)
	if !ok {
		return models.Product{}, false
	}

	description := rf.text(defaultDescription, descriptionFields...)
	fullDescription := rf.text("", fullDescriptionFields...)
	if fullDescription == "" {
		fullDescription = description
	}

	priceText := rf.text(defaultPrice, priceFields...)

	stock := 0
	if v, ok := rf.first(stockFields...); ok {
		stock = parseStock(v)
	}

	p := models.Product{
		ID:              id,
		Name:            name.String(),
		Code:            rf.text("CODE-"+util.TruncateRunes(id, 4), codeFields...),
		Description:     description,
		FullDescription: fullDescription,
		Price:           models.ParsePrice(priceText),
		PriceText:       priceText,
		Stock:           stock,
		Category:        rf.text(models.CategoryGeneral, categoryFields...),
		Images:          collectImages(rf),
	}
	if len(p.Images) == 0 {
		p.Images = []string{PlaceholderImage(p.Category, p.Name)}
	}
	return p, true
}
