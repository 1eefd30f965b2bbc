package domain

import (
	"encoding/json"
	"strings"
)

type Kind string

const (
	KindChampion Kind = "champion"
	KindItem     Kind = "item"
)

// Kinds lists every catalog kind in refresh order.
var Kinds = []Kind{KindChampion, KindItem}

func (k Kind) Valid() bool {
	return k == KindChampion || k == KindItem
}

// Title returns the kind with its first letter upper-cased, e.g. "Champion".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Record is one champion or item exactly as upstream sent it. Values are kept
// raw so fields we never look at survive a decode/encode cycle unchanged.
type Record map[string]json.RawMessage

// Image is the sprite sub-record of a Record.
type Image struct {
	Full   string `json:"full"`
	Sprite string `json:"sprite"`
	Group  string `json:"group,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	W      int    `json:"w"`
	H      int    `json:"h"`

	// Derived by enrichment
	FullURL        string `json:"fullUrl,omitempty"`
	SpriteSheetURL string `json:"spriteSheetUrl,omitempty"`
	SpriteURL      string `json:"spriteUrl,omitempty"`
}

func (r Record) ID() string {
	return r.stringField("id")
}

func (r Record) Name() string {
	return r.stringField("name")
}

// Tier returns the unit cost of a champion. Upstream has used both "tier" and
// "cost" for it; 0 means neither is present.
func (r Record) Tier() int {
	for _, key := range []string{"tier", "cost"} {
		raw, ok := r[key]
		if !ok {
			continue
		}
		var tier int
		if err := json.Unmarshal(raw, &tier); err == nil {
			return tier
		}
	}
	return 0
}

// Image decodes the image sub-record. ok is false when it is missing or is not
// an object.
func (r Record) Image() (img Image, ok bool) {
	raw, found := r["image"]
	if !found {
		return Image{}, false
	}
	if err := json.Unmarshal(raw, &img); err != nil {
		return Image{}, false
	}
	return img, true
}

// Clone returns a shallow copy. Raw values are never modified in place, so
// sharing them between copies is safe.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (r Record) stringField(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Catalog is an ordered list of records of a single kind.
type Catalog []Record

func (c Catalog) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID()
	}
	return ids
}
