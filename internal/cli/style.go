package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/clipforge/internal/domain/subtitles"
)

// loadStyle reads partial subtitle settings. JSON uses the same field names
// as the TOML form.
func loadStyle(path string) (subtitles.Customization, error) {
	var c subtitles.Customization
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read style: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return c, fmt.Errorf("parse style %s: %w", path, err)
		}
	case ".toml", "":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return c, fmt.Errorf("parse style %s: %w", path, err)
		}
	default:
		return c, fmt.Errorf("style %s: unsupported format (want .toml or .json)", path)
	}
	return c, nil
}
