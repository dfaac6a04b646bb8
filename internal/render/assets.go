package render

import "embed"

//go:embed assets/search.js assets/chart.js assets/storytimechart.js assets/style_light.css assets/style_dark.css
var assetFS embed.FS

// faviconPNG is a minimal valid PNG; the real icon is produced by the asset
// pipeline outside the build stage and substituted at packaging time.
var faviconPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// StaticAssets returns the stylesheet, script and favicon artifacts. All of
// them are share-hinted: identical bytes may be deduplicated by the writer.
func (r *Renderer) StaticAssets() ([]Artifact, error) {
	var artifacts []Artifact
	for _, asset := range []struct {
		embedded string
		path     string
		title    string
		mime     string
	}{
		{"assets/style_light.css", "style_light.css", "Stylesheet (light)", "text/css"},
		{"assets/style_dark.css", "style_dark.css", "Stylesheet (dark)", "text/css"},
		{"assets/search.js", "scripts/search.js", "Search", "application/javascript"},
		{"assets/chart.js", "scripts/chart.js", "Charts", "application/javascript"},
		{"assets/storytimechart.js", "scripts/storytimechart.js", "Story time chart", "application/javascript"},
	} {
		data, err := assetFS.ReadFile(asset.embedded)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{
			Path:     asset.path,
			Title:    asset.title,
			Mime:     asset.mime,
			Data:     data,
			Compress: true,
			Share:    true,
		})
	}
	artifacts = append(artifacts, Artifact{
		Path:  "favicon.png",
		Title: "Favicon (PNG)",
		Mime:  "image/png",
		Data:  faviconPNG,
		Share: true,
	})
	return artifacts, nil
}
