package tools

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/access"
)

// MetadataFileName is the name of the primary metadata document of a dataset.
const MetadataFileName = "ept.json"

type FileFinder interface {
	GetIndexesToOpen(input string, recursive bool) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// GetIndexesToOpen returns input itself when it is a URL or a file, otherwise the ept.json files
// found in the input folder, eventually excluding nested folders if recursive is disabled.
func (f *StandardFileFinder) GetIndexesToOpen(input string, recursive bool) ([]string, error) {
	if access.Classify(input) == access.Remote {
		return []string{input}, nil
	}

	baseInfo, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read input %s", input)
	}
	if !baseInfo.IsDir() {
		return []string{input}, nil
	}

	var indexes []string
	err = filepath.Walk(
		input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if os.SameFile(info, baseInfo) {
					return nil
				}
				// ept-data, ept-hierarchy and ept-sources hold no metadata
				if !recursive || strings.HasPrefix(info.Name(), "ept-") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(info.Name(), MetadataFileName) {
				indexes = append(indexes, path)
			}
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot search %s", input)
	}
	return indexes, nil
}
