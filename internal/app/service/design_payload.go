package service

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/storage"
)

const maxImagePath = 255

// Vec3 is an optional x/y/z triple from the customizer. Missing axes take
// the default passed to Or.
type Vec3 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Or resolves missing axes to def
func (v *Vec3) Or(def float64) (x, y, z float64) {
	x, y, z = def, def, def
	if v == nil {
		return
	}
	if v.X != nil {
		x = *v.X
	}
	if v.Y != nil {
		y = *v.Y
	}
	if v.Z != nil {
		z = *v.Z
	}
	return
}

// DecalPayload is one decal entry. Defaults: position and rotation 0.0, size 0.5.
type DecalPayload struct {
	ImageURL string `json:"imageUrl"`
	Position *Vec3  `json:"position"`
	Rotation *Vec3  `json:"rotation"`
	Size     *Vec3  `json:"size"`
}

// TextPayload is one text entry. Defaults: color #000000, position and
// rotation 0.0, scale 1.0.
type TextPayload struct {
	Content  string  `json:"content"`
	Color    *string `json:"color"`
	Position *Vec3   `json:"position"`
	Rotation *Vec3   `json:"rotation"`
	Scale    *Vec3   `json:"scale"`
}

// DesignPayload is the save_design request body. Decals and texts stay raw
// until each entry is decoded on its own, so one malformed entry does not
// sink the whole save.
type DesignPayload struct {
	Product json.RawMessage   `json:"product"`
	Color   json.RawMessage   `json:"color"`
	Decals  []json.RawMessage `json:"decals"`
	Texts   []json.RawMessage `json:"texts"`

	// Raw is the body exactly as received
	Raw json.RawMessage `json:"-"`
}

// ParseDesignPayload decodes a request body. Anything other than a JSON
// object with array-valued decals/texts is ErrInvalidJSON.
func ParseDesignPayload(body []byte) (*DesignPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidJSON
	}

	var p DesignPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, ErrInvalidJSON
	}
	p.Raw = append(json.RawMessage(nil), trimmed...)
	return &p, nil
}

// ProductCategory resolves the product field: absent or null means tshirt,
// anything that is not a known category string is ErrInvalidProduct.
func (p *DesignPayload) ProductCategory() (model.ProductCategory, error) {
	if isAbsent(p.Product) {
		return model.CategoryTShirt, nil
	}
	var s string
	if err := json.Unmarshal(p.Product, &s); err != nil {
		return "", ErrInvalidProduct
	}
	category := model.ProductCategory(s)
	if !category.IsValid() {
		return "", ErrInvalidProduct
	}
	return category, nil
}

// ColorValue resolves the color field: absent or null means #ffffff. In
// strict mode the value must be a hex color.
func (p *DesignPayload) ColorValue(strict bool) (string, error) {
	if isAbsent(p.Color) {
		return model.DefaultDesignColor, nil
	}
	var s string
	if err := json.Unmarshal(p.Color, &s); err != nil {
		return "", ErrInvalidColor
	}
	if !validColor(s, strict) {
		return "", ErrInvalidColor
	}
	return s, nil
}

func validColor(s string, strict bool) bool {
	if strict {
		return model.IsHexColor(s)
	}
	return s != "" && len(s) <= model.MaxColorLength
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// decodeDecal turns one raw entry into a row. ok=false means skip it.
func decodeDecal(raw json.RawMessage, files storage.FileStore) (decal model.DesignDecal, ok bool) {
	var d DecalPayload
	if err := json.Unmarshal(raw, &d); err != nil {
		return decal, false
	}
	image := normalizeImagePath(d.ImageURL, files)
	if image == "" || len(image) > maxImagePath {
		return decal, false
	}

	decal.Image = image
	decal.PosX, decal.PosY, decal.PosZ = d.Position.Or(0)
	decal.RotX, decal.RotY, decal.RotZ = d.Rotation.Or(0)
	decal.SizeX, decal.SizeY, decal.SizeZ = d.Size.Or(model.DefaultDecalSize)
	return decal, true
}

// decodeText turns one raw entry into a row. ok=false means skip it.
func decodeText(raw json.RawMessage, strict bool) (text model.DesignText, ok bool) {
	var t TextPayload
	if err := json.Unmarshal(raw, &t); err != nil {
		return text, false
	}
	if t.Content == "" || utf8.RuneCountInString(t.Content) > model.MaxTextContent {
		return text, false
	}

	color := model.DefaultTextColor
	if t.Color != nil {
		if !validColor(*t.Color, strict) {
			return text, false
		}
		color = *t.Color
	}

	text.Content = t.Content
	text.Color = color
	text.PosX, text.PosY, text.PosZ = t.Position.Or(0)
	text.RotX, text.RotY, text.RotZ = t.Rotation.Or(0)
	text.ScaleX, text.ScaleY, text.ScaleZ = t.Scale.Or(model.DefaultTextScale)
	return text, true
}

// normalizeImagePath maps a URL the file store handed out, such as
// "/media/decals/x.png" or "https://cdn/decals/x.png", back to "decals/x.png".
// Other references are kept as they are.
func normalizeImagePath(ref string, files storage.FileStore) string {
	if name, ok := files.Path(ref); ok {
		return name
	}
	return ref
}
