package refscan

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Site content records, reduced to the columns that hold asset URLs. The
// CRUD back office owns the full schema; the scanner only ever reads these
// columns. Every record type in the registry implements AssetHolder, so the
// set of reference fields is a closed, compile-checked enumeration rather
// than something discovered by reflection.
type AssetHolder interface {
	AssetURLs() []string
}

// StringList is a JSON-encoded text column holding a list of asset URLs
// (e.g. a documents list).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *StringList) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

type CatalogItem struct {
	ID        uint `gorm:"primaryKey"`
	Image     string
	Documents StringList
}

func (CatalogItem) TableName() string { return "catalog_item" }

func (c CatalogItem) AssetURLs() []string {
	return append([]string{c.Image}, c.Documents...)
}

type Service struct {
	ID    uint `gorm:"primaryKey"`
	Image string
	Icon  string
}

func (Service) TableName() string { return "service" }

func (s Service) AssetURLs() []string {
	return []string{s.Image, s.Icon}
}

type NewsPost struct {
	ID         uint `gorm:"primaryKey"`
	CoverImage string
	Images     StringList
}

func (NewsPost) TableName() string { return "news_post" }

func (n NewsPost) AssetURLs() []string {
	return append([]string{n.CoverImage}, n.Images...)
}

type TeamMember struct {
	ID    uint `gorm:"primaryKey"`
	Photo string
}

func (TeamMember) TableName() string { return "team_member" }

func (m TeamMember) AssetURLs() []string {
	return []string{m.Photo}
}

type Partner struct {
	ID   uint `gorm:"primaryKey"`
	Logo string
}

func (Partner) TableName() string { return "partner" }

func (p Partner) AssetURLs() []string {
	return []string{p.Logo}
}

type CareerOpening struct {
	ID    uint `gorm:"primaryKey"`
	Image string
}

func (CareerOpening) TableName() string { return "career_opening" }

func (c CareerOpening) AssetURLs() []string {
	return []string{c.Image}
}

type GalleryImage struct {
	ID    uint `gorm:"primaryKey"`
	Image string
}

func (GalleryImage) TableName() string { return "gallery_image" }

func (g GalleryImage) AssetURLs() []string {
	return []string{g.Image}
}

// Models lists every registered record type, for migrations and tests.
func Models() []any {
	return []any{
		&CatalogItem{},
		&Service{},
		&NewsPost{},
		&TeamMember{},
		&Partner{},
		&CareerOpening{},
		&GalleryImage{},
	}
}
