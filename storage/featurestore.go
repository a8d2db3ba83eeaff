package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/logger"
)

// Bookkeeping holds the metadata a FeatureStore records about written outputs.
// It travels inside the pipeline's persisted artifact so a reloaded pipeline
// knows the shape of what it produced before.
type Bookkeeping struct {
	OutputNames    []string         `json:"output_names"`
	DTypes         map[string]string `json:"dtypes"`
	OriginalShapes map[string][]int  `json:"original_shapes"`
}

// FeatureStore writes the declared outputs of a pipeline pass to a blob
// backend, one record per index.
type FeatureStore struct {
	blob   Storage
	prefix string
	log    *logger.Logger

	mu     sync.Mutex
	book   *Bookkeeping
	writes int
}

// batchRecord is the wire shape of one written pass.
type batchRecord struct {
	Index   any            `json:"index"`
	Outputs map[string]any `json:"outputs"`
}

// NewFeatureStore creates a FeatureStore rooted at prefix inside blob.
func NewFeatureStore(blob Storage, prefix string, log *logger.Logger) *FeatureStore {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &FeatureStore{
		blob:   blob,
		prefix: prefix,
		log:    log.WithComponent("featurestore"),
	}
}

// Write persists one pass worth of outputs keyed by index.
// The first write records bookkeeping (names, dtypes, shapes) for the artifact.
func (s *FeatureStore) Write(ctx context.Context, outputs map[string]any, index any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.book == nil {
		s.book = bookkeepingFor(outputs)
	}

	rec := batchRecord{Index: index, Outputs: outputs}
	buf, err := json.Marshal(rec)
	if err != nil {
		return errors.Storage("write", err)
	}

	path := fmt.Sprintf("%s/batches/%06d.json", s.prefix, s.writes)
	if err := s.blob.Upload(ctx, path, bytes.NewReader(buf)); err != nil {
		return errors.Storage("write", err)
	}
	s.writes++

	s.log.Debug("outputs written", logger.Fields(
		logger.FieldIndex, s.writes-1,
		"path", path,
		"outputs", len(outputs),
	))
	return nil
}

// artifactObject is the blob name of the persisted pipeline under the prefix.
const artifactObject = "pipeline.json"

// PutArtifact stores a serialized pipeline artifact under the store prefix.
func (s *FeatureStore) PutArtifact(ctx context.Context, data []byte) error {
	if err := s.blob.Upload(ctx, s.prefix+"/"+artifactObject, bytes.NewReader(data)); err != nil {
		return errors.Storage("put_artifact", err)
	}
	return nil
}

// GetArtifact fetches a previously stored pipeline artifact.
func (s *FeatureStore) GetArtifact(ctx context.Context) ([]byte, error) {
	rc, err := s.blob.Download(ctx, s.prefix+"/"+artifactObject)
	if err != nil {
		return nil, errors.Storage("get_artifact", err)
	}
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Storage("get_artifact", err)
	}
	return data, nil
}

// Writes returns the number of completed writes.
func (s *FeatureStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Bookkeeping returns a copy of the recorded bookkeeping. The zero value is
// returned before the first write.
func (s *FeatureStore) Bookkeeping() Bookkeeping {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.book == nil {
		return Bookkeeping{}
	}
	return *s.book
}

// RestoreBookkeeping reinstates bookkeeping recorded by a previous pipeline
// instance, typically after loading a persisted artifact.
func (s *FeatureStore) RestoreBookkeeping(b Bookkeeping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = &b
}

func bookkeepingFor(outputs map[string]any) *Bookkeeping {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	book := &Bookkeeping{
		OutputNames:    names,
		DTypes:         make(map[string]string, len(names)),
		OriginalShapes: make(map[string][]int, len(names)),
	}
	for _, name := range names {
		book.DTypes[name] = DTypeOf(outputs[name])
		book.OriginalShapes[name] = ShapeOf(outputs[name])
	}
	return book
}

// DTypeOf reports the element type of an array-like value, or the value's own
// type for scalars.
func DTypeOf(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return t.String()
}

// ShapeOf reports the dimensions of an array-like value. Scalars have an
// empty shape. Ragged inner slices are measured by their first element.
func ShapeOf(v any) []int {
	shape := []int{}
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		rv = rv.Index(0)
		if rv.Kind() == reflect.Interface {
			rv = rv.Elem()
		}
	}
	return shape
}
