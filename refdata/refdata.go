package refdata

import "encoding/json"

// Category is one entry of the storefront's main navigation tree.
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	Children []Category `json:"children,omitempty"`
}

// Platform is one gaming platform attribute value.
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// FilterOptions maps a filter facet (genre, platform, price range) to its
// vocabulary.
type FilterOptions map[string][]string

// SiteSettings holds miscellaneous storefront settings served with the page.
type SiteSettings map[string]any

// Snapshot is the combined result of PreloadAll. Cached is true when every
// collection was served from storage without a network call.
type Snapshot struct {
	Categories    []Category
	Platforms     []Platform
	FilterOptions FilterOptions
	Settings      SiteSettings
	Cached        bool
}

// decodeCategories unwraps the {"categories":[...]} envelope.
func decodeCategories(raw json.RawMessage) ([]Category, error) {
	var envelope struct {
		Categories []Category `json:"categories"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Categories, nil
}

// decodePlatforms decodes the bare array the attributes endpoint returns.
func decodePlatforms(raw json.RawMessage) ([]Platform, error) {
	var platforms []Platform
	if err := json.Unmarshal(raw, &platforms); err != nil {
		return nil, err
	}
	return platforms, nil
}

// decodeFilterOptions accepts both the {"success":true,"data":{...}}
// envelope and a raw facet object.
func decodeFilterOptions(raw json.RawMessage) (FilterOptions, error) {
	var envelope struct {
		Success bool          `json:"success"`
		Data    FilterOptions `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var direct FilterOptions
	if err := json.Unmarshal(raw, &direct); err != nil {
		return nil, err
	}
	return direct, nil
}

func decodeSettings(raw json.RawMessage) (SiteSettings, error) {
	var settings SiteSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
