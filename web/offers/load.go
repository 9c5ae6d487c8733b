package offers

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type catalogFile struct {
	Offers []Offer `toml:"offer"`
}

// Load reads a catalog from a TOML file of [[offer]] tables. Unknown enum
// values and unknown keys are rejected.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open offers file: %w", err)
	}
	defer f.Close()

	var file catalogFile
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode offers file %s: %w", path, err)
	}
	return New(file.Offers)
}
