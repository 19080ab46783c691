package airtable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aymshop/storefront/internal/models"
)

func TestNormalizeRecordLocalizedFields(t *testing.T) {
	raw := gjson.Parse(`{
		"نام": "شامپو گیاهی",
		"کود": "SH-1",
		"توضیح": "کوتاه",
		"توضیح کامل": "بلند",
		"قیمت": "1,250 افغانی",
		"موجودی": "7",
		"دسته‌بندی": "شامپو",
		"تصویر": [{"url": "https://img/1.jpg"}, {"url": "https://img/2.jpg"}]
	}`)

	p, ok := NormalizeRecord("rec123456", raw)
	require.True(t, ok)
	assert.Equal(t, "rec123456", p.ID)
	assert.Equal(t, "شامپو گیاهی", p.Name)
	assert.Equal(t, "SH-1", p.Code)
	assert.Equal(t, "کوتاه", p.Description)
	assert.Equal(t, "بلند", p.FullDescription)
	assert.Equal(t, models.Amount(1250), p.Price)
	assert.Equal(t, "1,250 افغانی", p.PriceText)
	assert.Equal(t, 7, p.Stock)
	assert.Equal(t, "شامپو", p.Category)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, p.Images)
}

func TestNormalizeRecordFallbacks(t *testing.T) {
	raw := gjson.Parse(`{"Product Name": "Soap", "Description": "plain", "Stock": "abc"}`)

	p, ok := NormalizeRecord("recABCDEF", raw)
	require.True(t, ok)
	assert.Equal(t, "Soap", p.Name)
	assert.Equal(t, "CODE-recA", p.Code)
	assert.Equal(t, "plain", p.Description)
	assert.Equal(t, "plain", p.FullDescription)
	assert.Equal(t, "0 افغانی", p.PriceText)
	assert.Equal(t, models.Amount(0), p.Price)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, models.CategoryGeneral, p.Category)
}

func TestNormalizeRecordEnglishBeforeSecondaryAlias(t *testing.T) {
	raw := gjson.Parse(`{"Name": "", "نام": "", "Product Name": "Alias", "Description": "en", "توضیحات": "fa", "Stock": 0, "تعداد": 4}`)

	p, ok := NormalizeRecord("rec1", raw)
	require.True(t, ok)
	assert.Equal(t, "Alias", p.Name)
	assert.Equal(t, "en", p.Description)
	assert.Equal(t, 4, p.Stock)
}

func TestNormalizeRecordWithoutName(t *testing.T) {
	for _, raw := range []string{`{}`, `{"Price": "100"}`, `{"Name": ""}`, `{"نام": null}`} {
		_, ok := NormalizeRecord("rec1", gjson.Parse(raw))
		assert.False(t, ok, raw)
	}
}

func TestNormalizeRecordPlaceholderImage(t *testing.T) {
	for _, raw := range []string{
		`{"Name": "Rose perfume bottle large", "Category": "عطر"}`,
		`{"Name": "Rose perfume bottle large", "Category": "عطر", "Images": []}`,
		`{"Name": "Rose perfume bottle large", "Category": "عطر", "Photo": null}`,
	} {
		p, ok := NormalizeRecord("rec1", gjson.Parse(raw))
		require.True(t, ok)
		require.Len(t, p.Images, 1, raw)
		assert.Equal(t, PlaceholderImage("عطر", "Rose perfume bottle large"), p.Images[0])
		assert.True(t, strings.HasPrefix(p.Images[0], placeholderBase+"?text="))
		assert.Contains(t, p.Images[0], "Rose%20perfume%20bo")
		assert.NotContains(t, p.Images[0], "large")
	}
}

func TestCollectImagesDedupAndStructuralMatch(t *testing.T) {
	raw := gjson.Parse(`{
		"Name": "Cream",
		"Gallery": [{"url": "https://img/a.jpg"}, {"url": "https://img/b.jpg"}],
		"عکس": {"url": "https://img/a.jpg"},
		"Main Picture": {"url": "https://img/c.jpg"},
		"Notes": [{"text": "no url"}],
		"image_link": "https://img/d.jpg"
	}`)

	p, ok := NormalizeRecord("rec1", raw)
	require.True(t, ok)
	assert.Equal(t, []string{
		"https://img/a.jpg",
		"https://img/b.jpg",
		"https://img/c.jpg",
	}, p.Images)
}

func TestCollectImagesIgnoresPlainURLStrings(t *testing.T) {
	raw := gjson.Parse(`{"Name": "Soap", "Category": "صابون", "Image": "https://img/plain.jpg"}`)

	p, ok := NormalizeRecord("rec2", raw)
	require.True(t, ok)
	assert.Equal(t, []string{PlaceholderImage("صابون", "Soap")}, p.Images)
}

func TestParseStock(t *testing.T) {
	tests := map[string]int{
		`12`:      12,
		`"12abc"`: 12,
		`" 3 "`:   3,
		`-5`:      0,
		`"x"`:     0,
		`2.9`:     2,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseStock(gjson.Parse(raw)), raw)
	}
}

func TestCategoryEmoji(t *testing.T) {
	assert.Equal(t, "🌸", CategoryEmoji("عطر"))
	assert.Equal(t, "📦", CategoryEmoji("unknown"))
	assert.Equal(t, "🧸", CategoryEmoji("اسباب بازی"))
}

func TestEmojiTableRejectsMalformedYAML(t *testing.T) {
	assert.Panics(t, func() { mustLoadEmojiTable([]byte("categories: [")) })
}
