package pkg

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.viam.com/test"

	"github.com/ecopia-map/ept_index/internal/data"
	"github.com/ecopia-map/ept_index/internal/ept"
	"github.com/ecopia-map/ept_index/pkg/source_manager"
)

// Stored X, Y, Z, Intensity and Classification of the points of every tile. Real world
// coordinates are stored * 0.01 + (105, 205, 5).
var fixtureTiles = map[string][][5]float64{
	"0-0-0-0": {{0, 0, 0, 100, 2}, {-400, -400, -400, 10, 2}, {400, 400, 400, 300, 6}},
	"1-0-0-1": {{-200, -300, 100, 50, 2}, {-100, -100, 300, 60, 6}},
	"1-1-0-0": {{300, -300, -300, 70, 2}},
	"2-2-1-0": {{100, -100, -400, 80, 2}},
}

var fixtureHierarchy = map[string]string{
	"0-0-0-0": `{"0-0-0-0": 3, "1-0-0-1": 2, "1-1-0-0": -1}`,
	"1-1-0-0": `{"1-1-0-0": 1, "2-2-1-0": 1}`,
}

const fixtureMetadata = `{
	"dataType": "binary",
	"hierarchyType": "json",
	"span": 128,
	"points": 7,
	"srs": {"wkt": "PROJCS[\"test\"]"},
	"bounds": [100, 200, 0, 110, 210, 10],
	"boundsConforming": [101, 201, 1, 109, 209, 9],
	"schema": [
		{"name": "X", "type": "signed", "size": 4, "scale": 0.01, "offset": 105},
		{"name": "Y", "type": "signed", "size": 4, "scale": 0.01, "offset": 205},
		{"name": "Z", "type": "signed", "size": 4, "scale": 0.01, "offset": 5},
		{"name": "Intensity", "type": "unsigned", "size": 2,
			"count": 7, "minimum": 10, "maximum": 300, "mean": 95.7, "stddev": 90, "variance": 8100},
		{"name": "Classification", "type": "unsigned", "size": 1,
			"counts": [{"value": 6, "count": 2}, {"value": 2, "count": 5}]}
	]
}`

func fixtureSchema(t *testing.T) *data.Schema {
	t.Helper()
	s := data.NewSchema()
	test.That(t, s.AddEntry("X", "signed", 4), test.ShouldBeNil)
	test.That(t, s.AddEntry("Y", "signed", 4), test.ShouldBeNil)
	test.That(t, s.AddEntry("Z", "signed", 4), test.ShouldBeNil)
	test.That(t, s.AddEntry("Intensity", "unsigned", 2), test.ShouldBeNil)
	test.That(t, s.AddEntry("Classification", "unsigned", 1), test.ShouldBeNil)
	return s
}

func writeFixtureFile(t *testing.T, path string, content []byte) {
	t.Helper()
	test.That(t, os.MkdirAll(filepath.Dir(path), 0o755), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, content, 0o644), test.ShouldBeNil)
}

// writeDataset lays a complete binary dataset out below a temporary directory and returns the
// path of its ept.json.
func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixtureFile(t, filepath.Join(dir, "ept.json"), []byte(fixtureMetadata))

	for node, content := range fixtureHierarchy {
		writeFixtureFile(t, filepath.Join(dir, "ept-hierarchy", node+".json"), []byte(content))
	}

	s := fixtureSchema(t)
	fields := s.Fields()
	for node, points := range fixtureTiles {
		raw := make([]byte, len(points)*s.RecordSize())
		for i, p := range points {
			record := raw[i*s.RecordSize():]
			for j, f := range fields {
				data.WriteValue(record[f.Offset:], f.Type, p[j])
			}
		}
		writeFixtureFile(t, filepath.Join(dir, "ept-data", node+".bin"), raw)
	}

	manifest, err := json.Marshal([]map[string]string{
		{"path": "b.las", "metadataPath": "b.json"},
		{"path": "c.las", "metadataPath": "c.json"},
	})
	test.That(t, err, test.ShouldBeNil)
	writeFixtureFile(t, filepath.Join(dir, "ept-sources", "manifest.json"), manifest)
	writeFixtureFile(t, filepath.Join(dir, "ept-sources", "b.json"), []byte(`{
		"path": "b.las",
		"metadata": {
			"readers.las": {"comp_spatialreference": "EPSG:2056", "count": 12},
			"filters.stats": {"count": 99, "bbox": {"minx": 101, "maxx": 109}, "dimensions": ["X", "Y"]}
		}
	}`))
	return filepath.Join(dir, "ept.json")
}

func testManager(t *testing.T) source_manager.SourceManager {
	t.Helper()
	manager := source_manager.NewSourceManager(&ept.IndexOptions{
		TileCacheMaxBytes: 1 << 20,
		TileCacheCounters: 1000,
		PrefetchWorkers:   2,
	})
	t.Cleanup(manager.Close)
	return manager
}

// tileOverride handles a tile request in place of the file server when it returns true.
type tileOverride func(w http.ResponseWriter, r *http.Request) bool

// datasetServer serves a dataset directory over HTTP, counting tile requests.
type datasetServer struct {
	*httptest.Server
	tileRequests atomic.Int32
	override     tileOverride
}

func newDatasetServer(t *testing.T, metadataPath string, override tileOverride) *datasetServer {
	t.Helper()
	s := &datasetServer{override: override}
	files := http.FileServer(http.Dir(filepath.Dir(metadataPath)))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ept-data/") {
			s.tileRequests.Add(1)
			if s.override != nil && s.override(w, r) {
				return
			}
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *datasetServer) metadataURL() string {
	return s.URL + "/ept.json"
}
