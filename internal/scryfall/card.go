package scryfall

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BulkDataType names one of the bulk files Scryfall publishes.
type BulkDataType string

const (
	BulkOracleCards   BulkDataType = "oracle_cards"
	BulkUniqueArtwork BulkDataType = "unique_artwork"
	BulkDefaultCards  BulkDataType = "default_cards"
	BulkAllCards      BulkDataType = "all_cards"
	BulkRulings       BulkDataType = "rulings"
)

var bulkDataTypes = []BulkDataType{
	BulkOracleCards,
	BulkUniqueArtwork,
	BulkDefaultCards,
	BulkAllCards,
	BulkRulings,
}

// ParseBulkDataType validates s against the known bulk file types.
func ParseBulkDataType(s string) (BulkDataType, error) {
	for _, t := range bulkDataTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown bulk data type %q", s)
}

// ImageType is one of the image versions Scryfall serves for each card.
type ImageType string

const (
	ImageSmall      ImageType = "small"
	ImageNormal     ImageType = "normal"
	ImageLarge      ImageType = "large"
	ImagePNG        ImageType = "png"
	ImageArtCrop    ImageType = "art_crop"
	ImageBorderCrop ImageType = "border_crop"
)

var imageTypes = []ImageType{
	ImageSmall,
	ImageNormal,
	ImageLarge,
	ImagePNG,
	ImageArtCrop,
	ImageBorderCrop,
}

// ParseImageType validates s against the known image versions.
func ParseImageType(s string) (ImageType, error) {
	for _, t := range imageTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown image type %q", s)
}

// Ext is the file extension images of this type are saved with.
func (t ImageType) Ext() string {
	if t == ImagePNG {
		return ".png"
	}
	return ".jpg"
}

// ImageFileName is the name a card's downloaded image is stored under.
func ImageFileName(id string, t ImageType) string {
	return id + t.Ext()
}

// Rarity of a printing.
type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
	RaritySpecial  Rarity = "special"
	RarityBonus    Rarity = "bonus"
)

// LayoutArtSeries cards are art cards with no gameplay face; they are never
// downloaded.
const LayoutArtSeries = "art_series"

// ErrNoImage is returned when a card carries no URI for the requested image.
var ErrNoImage = errors.New("no image uri")

// ImageURIs holds the per-size image links of a card or card face.
type ImageURIs struct {
	Small      string `json:"small,omitempty"`
	Normal     string `json:"normal,omitempty"`
	Large      string `json:"large,omitempty"`
	PNG        string `json:"png,omitempty"`
	ArtCrop    string `json:"art_crop,omitempty"`
	BorderCrop string `json:"border_crop,omitempty"`
}

// Get returns the link for t, or "" if there is none.
func (u *ImageURIs) Get(t ImageType) string {
	if u == nil {
		return ""
	}
	switch t {
	case ImageSmall:
		return u.Small
	case ImageNormal:
		return u.Normal
	case ImageLarge:
		return u.Large
	case ImagePNG:
		return u.PNG
	case ImageArtCrop:
		return u.ArtCrop
	case ImageBorderCrop:
		return u.BorderCrop
	}
	return ""
}

// CardFace is one face of a multi-faced card.
type CardFace struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost"`
	TypeLine   string     `json:"type_line,omitempty"`
	OracleText string     `json:"oracle_text,omitempty"`
	Power      string     `json:"power,omitempty"`
	Toughness  string     `json:"toughness,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	Artist     string     `json:"artist,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// Card is an entry of a bulk data file. Only the fields the scanner uses are
// decoded; see https://scryfall.com/docs/api/cards for the full object.
type Card struct {
	ID              string     `json:"id"`
	OracleID        string     `json:"oracle_id,omitempty"`
	Lang            string     `json:"lang"`
	Layout          string     `json:"layout"`
	Name            string     `json:"name"`
	ManaCost        string     `json:"mana_cost,omitempty"`
	CMC             float64    `json:"cmc,omitempty"`
	TypeLine        string     `json:"type_line,omitempty"`
	OracleText      string     `json:"oracle_text,omitempty"`
	Power           string     `json:"power,omitempty"`
	Toughness       string     `json:"toughness,omitempty"`
	Colors          []string   `json:"colors,omitempty"`
	ColorIdentity   []string   `json:"color_identity,omitempty"`
	Keywords        []string   `json:"keywords,omitempty"`
	Rarity          Rarity     `json:"rarity"`
	Set             string     `json:"set"`
	SetName         string     `json:"set_name,omitempty"`
	CollectorNumber string     `json:"collector_number,omitempty"`
	Artist          string     `json:"artist,omitempty"`
	ReleasedAt      string     `json:"released_at,omitempty"`
	URI             string     `json:"uri"`
	ScryfallURI     string     `json:"scryfall_uri"`
	ImageURIs       *ImageURIs `json:"image_uris,omitempty"`
	CardFaces       []CardFace `json:"card_faces,omitempty"`
}

// ImageURI returns the link to the card's image of type t. Cards without
// top-level images (double-faced layouts) use their front face.
func (c *Card) ImageURI(t ImageType) (string, error) {
	images := c.ImageURIs
	if images == nil && len(c.CardFaces) > 0 {
		images = c.CardFaces[0].ImageURIs
	}
	if uri := images.Get(t); uri != "" {
		return uri, nil
	}
	return "", fmt.Errorf("%w: card %s with layout %q has no %s image", ErrNoImage, c.ID, c.Layout, t)
}

// ParseCards decodes raw bulk entries into cards.
func ParseCards(items []json.RawMessage) ([]Card, error) {
	cards := make([]Card, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &cards[i]); err != nil {
			return nil, fmt.Errorf("failed to decode card %d: %w", i, err)
		}
	}
	return cards, nil
}
