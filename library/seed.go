package library

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SeedBook is one entry of a seed file. Year stays a string so it goes
// through the same parsing as form input.
type SeedBook struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Genre  string `yaml:"genre"`
	Year   string `yaml:"year"`
}

type seedFile struct {
	Books []SeedBook `yaml:"books"`
}

// LoadSeed reads a YAML seed file of the form `books: [{title, author, genre, year}]`.
func LoadSeed(path string) ([]SeedBook, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, oops.Code("SEED_READ").With("path", path).Wrap(err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// ParseSeed decodes seed YAML from r. An empty document yields no books.
func ParseSeed(r io.Reader) ([]SeedBook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, oops.Code("SEED_READ").Wrap(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, oops.Code("SEED_PARSE").Wrapf(err, "parse seed")
	}
	return sf.Books, nil
}
