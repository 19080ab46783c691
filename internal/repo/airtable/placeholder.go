package airtable

import (
	_ "embed"
	"fmt"

	"github.com/aymshop/storefront/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	placeholderBase    = "https://via.placeholder.com/400x300/3949ab/FFFFFF"
	placeholderNameLen = 15
)

//go:embed category_emojis.yaml
var categoryEmojisData []byte

type emojiTable struct {
	Default    string            `yaml:"default"`
	Categories map[string]string `yaml:"categories"`
}

var categoryEmojis = mustLoadEmojiTable(categoryEmojisData)

func mustLoadEmojiTable(data []byte) emojiTable {
	var table emojiTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		panic(fmt.Errorf("parse category emojis: %w", err))
	}
	return table
}

func CategoryEmoji(category string) string {
	if e, ok := categoryEmojis.Categories[category]; ok {
		return e
	}
	return categoryEmojis.Default
}

// PlaceholderImage is deterministic for a given category and name.
func PlaceholderImage(category, name string) string {
	text := CategoryEmoji(category) + " " + util.TruncateRunes(name, placeholderNameLen)
	return fmt.Sprintf("%s?text=%s", placeholderBase, util.EncodeURIComponent(text))
}
