// Package manifestio decodes manifest files from disk into the core's
// deploy.Manifest shape. Parsing raw bytes sits outside the core per
// spec §1's boundary, but the CLI still needs a concrete decoder to
// turn a YAML file into the []deploy.Manifest the orchestrator expects;
// multi-document decoding follows the pattern of
// brutalist/internal/harness/scenario.go's yaml.Decoder loop.
package manifestio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/false-systems/nopea/internal/deploy"
)

// LoadFile reads path and decodes every YAML document in it into a
// deploy.Manifest, supporting multi-document files separated by "---".
func LoadFile(path string) ([]deploy.Manifest, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest file %s: %w", path, err)
	}
	return Decode(body)
}

// Decode parses every YAML document in body into a deploy.Manifest.
// Empty documents (e.g. a trailing "---") are skipped.
func Decode(body []byte) ([]deploy.Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(body))

	var manifests []deploy.Manifest
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode manifest document: %w", err)
		}
		if len(doc) == 0 {
			continue
		}
		manifests = append(manifests, deploy.Manifest(doc))
	}
	return manifests, nil
}
