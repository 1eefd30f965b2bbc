package service_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dom/tft-catalog/internal/domain"
	"github.com/dom/tft-catalog/internal/service"
	"github.com/dom/tft-catalog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://ddragon.leagueoflegends.com/cdn/15.9.1"

func TestEnricher_Enhance(t *testing.T) {
	enricher := service.NewEnricher(testBaseURL, nil)

	tests := []struct {
		name           string
		record         domain.Record
		kind           domain.Kind
		fullURL        string
		spriteSheetURL string
		spriteURL      string
	}{
		{
			name:           "item",
			record:         testutil.NewRecordBuilder("TFT_Item_Deathblade").WithImage("Deathblade.png", "items0.png", 0, 0, 64, 64).Build(t),
			kind:           domain.KindItem,
			fullURL:        testBaseURL + "/img/tft-item/Deathblade.png",
			spriteSheetURL: testBaseURL + "/img/sprite/items0.png",
			spriteURL:      "/images/sprites/champions/Deathblade.webp",
		},
		{
			name:           "champion",
			record:         testutil.NewRecordBuilder("TFT14_Ahri").WithTier(2).WithImage("TFT14_Ahri.TFT_Set14.png", "tft-champion2.png", 96, 48, 48, 48).Build(t),
			kind:           domain.KindChampion,
			fullURL:        testBaseURL + "/img/tft-champion/TFT14_Ahri.TFT_Set14.png",
			spriteSheetURL: testBaseURL + "/img/sprite/tft-champion2.png",
			spriteURL:      "/images/sprites/champions/TFT14_Ahri.webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enricher.Enhance(tt.record, tt.kind)
			require.NoError(t, err)

			img := testutil.ImageOf(t, got)
			assert.Equal(t, tt.fullURL, img.FullURL)
			assert.Equal(t, tt.spriteSheetURL, img.SpriteSheetURL)
			assert.Equal(t, tt.spriteURL, img.SpriteURL)

			// Sprite geometry is carried over
			orig := testutil.ImageOf(t, tt.record)
			assert.Equal(t, orig.X, img.X)
			assert.Equal(t, orig.Y, img.Y)
			assert.Equal(t, orig.W, img.W)
			assert.Equal(t, orig.H, img.H)
			assert.Equal(t, orig.Group, img.Group)
		})
	}
}

func TestEnricher_OnlyImageChanges(t *testing.T) {
	record := testutil.NewRecordBuilder("TFT14_Jinx").
		WithTier(4).
		WithField("traits", []string{"Rebel", "Sniper"}).
		WithField("stats", map[string]float64{"armor": 30, "attackSpeed": 0.75}).
		Build(t)
	before := record.Clone()

	got, err := service.NewEnricher(testBaseURL, nil).Enhance(record, domain.KindChampion)
	require.NoError(t, err)

	for key, raw := range before {
		if key == "image" {
			continue
		}
		assert.Equal(t, string(raw), string(got[key]), "field %s must be untouched", key)
	}
	assert.Len(t, got, len(before))
	assert.Equal(t, 4, got.Tier())

	// The input is not modified
	assert.Equal(t, before, record)
}

func TestEnricher_Idempotent(t *testing.T) {
	enricher := service.NewEnricher(testBaseURL, nil)
	record := testutil.NewRecordBuilder("TFT_Item_Deathblade").WithImage("Deathblade.png", "items0.png", 0, 0, 64, 64).Build(t)

	once, err := enricher.Enhance(record, domain.KindItem)
	require.NoError(t, err)
	twice, err := enricher.Enhance(once, domain.KindItem)
	require.NoError(t, err)

	a, b := testutil.ImageOf(t, once), testutil.ImageOf(t, twice)
	assert.Equal(t, a.FullURL, b.FullURL)
	assert.Equal(t, a.SpriteSheetURL, b.SpriteSheetURL)
	assert.Equal(t, a.SpriteURL, b.SpriteURL)
	assert.JSONEq(t, string(once["image"]), string(twice["image"]))
}

func TestEnricher_PerKindSpriteTemplate(t *testing.T) {
	enricher := service.NewEnricher(testBaseURL, map[domain.Kind]service.SpriteTemplate{
		domain.KindItem: {Dir: "/images/sprites/items/", Ext: ".png"},
	})
	record := testutil.NewRecordBuilder("TFT_Item_Deathblade").WithImage("Deathblade.png", "items0.png", 0, 0, 64, 64).Build(t)

	item, err := enricher.Enhance(record, domain.KindItem)
	require.NoError(t, err)
	assert.Equal(t, "/images/sprites/items/Deathblade.png", testutil.ImageOf(t, item).SpriteURL)

	// Kinds without a template keep the champions directory
	champ, err := enricher.Enhance(record, domain.KindChampion)
	require.NoError(t, err)
	assert.Equal(t, "/images/sprites/champions/Deathblade.webp", testutil.ImageOf(t, champ).SpriteURL)
}

func TestEnricher_BadImage(t *testing.T) {
	enricher := service.NewEnricher(testBaseURL, nil)

	noImage := testutil.NewRecordBuilder("TFT_Item_Ghost").WithoutImage().Build(t)
	_, err := enricher.Enhance(noImage, domain.KindItem)
	assert.True(t, errors.Is(err, domain.ErrParse))

	stringImage := testutil.NewRecordBuilder("TFT_Item_Ghost").Build(t)
	stringImage["image"] = json.RawMessage(`"Ghost.png"`)
	_, err = enricher.Enhance(stringImage, domain.KindItem)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestEnricher_FractionalGeometry(t *testing.T) {
	record := testutil.NewRecordBuilder("TFT_Item_Deathblade").Build(t)
	record["image"] = json.RawMessage(`{"full":"Deathblade.png","sprite":"items0.png","x":1.5,"y":0,"w":47.5,"h":48}`)

	got, err := service.NewEnricher(testBaseURL, nil).Enhance(record, domain.KindItem)
	require.NoError(t, err)

	var image map[string]interface{}
	require.NoError(t, json.Unmarshal(got["image"], &image))
	assert.Equal(t, 1.5, image["x"])
	assert.Equal(t, 47.5, image["w"])
	assert.Equal(t, testBaseURL+"/img/tft-item/Deathblade.png", image["fullUrl"])
	assert.Equal(t, "/images/sprites/champions/Deathblade.webp", image["spriteUrl"])
}
