package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dom/tft-catalog/internal/domain"
)

type SpriteTemplate struct {
	Dir string
	Ext string
}

// DefaultSpriteTemplate is used for any kind without its own template. Items
// land in the champions directory too.
var DefaultSpriteTemplate = SpriteTemplate{Dir: "/images/sprites/champions", Ext: ".webp"}

// Enricher adds derived image URLs to records.
type Enricher struct {
	BaseURL string
	Sprites map[domain.Kind]SpriteTemplate
}

func NewEnricher(baseURL string, sprites map[domain.Kind]SpriteTemplate) *Enricher {
	return &Enricher{BaseURL: strings.TrimRight(baseURL, "/"), Sprites: sprites}
}

// Enhance returns a copy of r whose image gains fullUrl, spriteSheetUrl and
// spriteUrl. Only the image field differs from r.
func (e *Enricher) Enhance(r domain.Record, kind domain.Kind) (domain.Record, error) {
	raw, ok := r["image"]
	if !ok {
		return nil, fmt.Errorf("%w: record %q has no image", domain.ErrParse, r.ID())
	}

	var image map[string]json.RawMessage
	if err := json.Unmarshal(raw, &image); err != nil || image == nil {
		return nil, fmt.Errorf("%w: record %q image is not an object", domain.ErrParse, r.ID())
	}
	// Only the file names matter here; sprite geometry is passed through as is.
	var img struct {
		Full   string `json:"full"`
		Sprite string `json:"sprite"`
	}
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("%w: record %q image names: %w", domain.ErrParse, r.ID(), err)
	}

	sprite := e.sprite(kind)
	image["fullUrl"] = rawString(fmt.Sprintf("%s/img/tft-%s/%s", e.BaseURL, kind, img.Full))
	image["spriteSheetUrl"] = rawString(fmt.Sprintf("%s/img/sprite/%s", e.BaseURL, img.Sprite))
	image["spriteUrl"] = rawString(fmt.Sprintf("%s/%s%s", strings.TrimRight(sprite.Dir, "/"), stem(img.Full), sprite.Ext))

	encoded, err := json.Marshal(image)
	if err != nil {
		return nil, fmt.Errorf("%w: record %q: %w", domain.ErrParse, r.ID(), err)
	}

	out := r.Clone()
	out["image"] = encoded
	return out, nil
}

func (e *Enricher) sprite(kind domain.Kind) SpriteTemplate {
	if t, ok := e.Sprites[kind]; ok {
		return t
	}
	return DefaultSpriteTemplate
}

// stem drops everything from the first dot, so "Deathblade.png" is "Deathblade".
func stem(filename string) string {
	before, _, _ := strings.Cut(filename, ".")
	return before
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
