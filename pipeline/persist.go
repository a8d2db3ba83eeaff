package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/storage"
)

// artifactSchemaVersion guards the persisted encoding; bump on any breaking
// change to the record shapes below.
const artifactSchemaVersion = 1

// nodeRecord is the persisted description of one node: identity,
// connectivity, and learned state. Outputs never appear here.
type nodeRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DefaultName bool     `json:"default_name,omitempty"`
	Role        string   `json:"role"`
	Kind        string   `json:"kind,omitempty"`
	Inbound     []string `json:"inbound,omitempty"`
	State       []byte   `json:"state,omitempty"`
}

// artifact is the persisted pipeline: nodes in path order plus the declared
// boundary, versioning metadata, and storage bookkeeping when present.
type artifact struct {
	SchemaVersion int                  `json:"schema_version"`
	Name          string               `json:"name"`
	Version       string               `json:"version"`
	Nodes         []nodeRecord         `json:"nodes"`
	Inputs        []string             `json:"inputs"`
	Outputs       []string             `json:"outputs"`
	Bookkeeping   *storage.Bookkeeping `json:"bookkeeping,omitempty"`
}

// Save serializes the pipeline's structure and learned state. Transient
// outputs are detached to a side table for the duration and restored before
// returning, so the live pipeline is unaffected by saving.
func (p *Pipeline) Save() ([]byte, error) {
	side := make(map[*Node]any, len(p.path))
	for _, n := range p.path {
		side[n] = n.output
		n.output = nil
	}
	defer func() {
		for n, out := range side {
			n.output = out
		}
	}()

	art := artifact{
		SchemaVersion: artifactSchemaVersion,
		Name:          p.name,
		Version:       p.version,
		Nodes:         make([]nodeRecord, 0, len(p.path)),
	}
	inPath := make(map[*Node]bool, len(p.path))
	for _, n := range p.path {
		rec, err := recordNode(n)
		if err != nil {
			return nil, err
		}
		art.Nodes = append(art.Nodes, rec)
		inPath[n] = true
	}
	// unused declared inputs are not part of the path and do not round-trip
	for _, n := range p.inputs {
		if inPath[n] {
			art.Inputs = append(art.Inputs, n.id)
		}
	}
	for _, n := range p.outputs {
		art.Outputs = append(art.Outputs, n.id)
	}
	if p.store != nil {
		if book := p.store.Bookkeeping(); len(book.OutputNames) > 0 {
			art.Bookkeeping = &book
		}
	}
	return json.Marshal(art)
}

// SaveTo serializes the pipeline and uploads the artifact to the attached
// feature store under the pipeline's name and version.
func (p *Pipeline) SaveTo(ctx context.Context) error {
	if p.store == nil {
		return errors.Validation("pipeline has no feature store attached")
	}
	data, err := p.Save()
	if err != nil {
		return err
	}
	return p.store.PutArtifact(ctx, data)
}

// WriteArtifact serializes the pipeline to an arbitrary sink.
func (p *Pipeline) WriteArtifact(w io.Writer) error {
	data, err := p.Save()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadArtifact rebuilds a pipeline from a serialized artifact read from r.
func ReadArtifact(r io.Reader, reg *Registry, opts ...Option) (*Pipeline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.InvalidArtifact("read", err)
	}
	return Load(data, reg, opts...)
}

func recordNode(n *Node) (nodeRecord, error) {
	rec := nodeRecord{
		ID:          n.id,
		Name:        n.name,
		DefaultName: n.defaultName,
		Role:        n.role.String(),
	}
	for _, in := range n.inbound {
		rec.Inbound = append(rec.Inbound, in.id)
	}

	var op any
	switch n.role {
	case RoleTransform:
		op = n.op
	case RoleMetric:
		op = n.metric
	case RoleTrainable:
		op = n.model
	default:
		return rec, nil
	}
	kinded, ok := op.(Kinded)
	if !ok {
		return rec, errors.InvalidArtifact(fmt.Sprintf("operation on node %q has no kind", n.name), nil)
	}
	rec.Kind = kinded.Kind()
	if codec, ok := op.(StateCodec); ok {
		state, err := codec.MarshalState()
		if err != nil {
			return rec, errors.InvalidArtifact(fmt.Sprintf("marshal state of node %q", n.name), err)
		}
		rec.State = state
	}
	return rec, nil
}

// Load rebuilds a pipeline from a serialized artifact. Operations are
// reconstructed through the registry by their persisted kind and their
// learned state reinstated, so the loaded pipeline transforms identically to
// the one that was saved.
func Load(data []byte, reg *Registry, opts ...Option) (*Pipeline, error) {
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, errors.InvalidArtifact("decode", err)
	}
	if art.SchemaVersion != artifactSchemaVersion {
		return nil, errors.InvalidArtifact(fmt.Sprintf("unsupported schema version %d", art.SchemaVersion), nil)
	}

	byID := make(map[string]*Node, len(art.Nodes))
	for _, rec := range art.Nodes {
		n, err := restoreNode(rec, reg)
		if err != nil {
			return nil, err
		}
		// records are in path order, so inbound nodes already exist
		inbound := make([]*Node, 0, len(rec.Inbound))
		for _, id := range rec.Inbound {
			in, ok := byID[id]
			if !ok {
				return nil, errors.InvalidArtifact(fmt.Sprintf("node %q references unknown inbound id %s", rec.Name, id), nil)
			}
			inbound = append(inbound, in)
		}
		connect(n, inbound)
		byID[rec.ID] = n
	}

	inputs, err := resolveNodes(byID, art.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := resolveNodes(byID, art.Outputs)
	if err != nil {
		return nil, err
	}

	p, err := New(outputs, inputs, append([]Option{WithName(art.Name), WithVersion(art.Version)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if p.store != nil && art.Bookkeeping != nil {
		p.store.RestoreBookkeeping(*art.Bookkeeping)
	}
	return p, nil
}

// LoadFrom downloads the artifact stored under name/version in blob and
// rebuilds the pipeline bound to that store.
func LoadFrom(ctx context.Context, blob storage.Storage, name, version string, reg *Registry, opts ...Option) (*Pipeline, error) {
	store := storage.NewFeatureStore(blob, name+"/"+version, nil)
	data, err := store.GetArtifact(ctx)
	if err != nil {
		return nil, err
	}
	return Load(data, reg, append([]Option{WithStore(store)}, opts...)...)
}

func restoreNode(rec nodeRecord, reg *Registry) (*Node, error) {
	role, err := roleFromString(rec.Role)
	if err != nil {
		return nil, err
	}
	n := &Node{
		id:          rec.ID,
		name:        rec.Name,
		defaultName: rec.DefaultName,
		role:        role,
	}
	if role == RoleInput {
		return n, nil
	}
	if rec.Kind == "" {
		return nil, errors.InvalidArtifact(fmt.Sprintf("node %q has no operation kind", rec.Name), nil)
	}
	if reg == nil {
		return nil, errors.InvalidArtifact(fmt.Sprintf("registry required to rebuild node %q", rec.Name), nil)
	}

	var op any
	switch role {
	case RoleTransform:
		n.op, err = reg.transformer(rec.Kind)
		op = n.op
	case RoleMetric:
		n.metric, err = reg.metric(rec.Kind)
		op = n.metric
	case RoleTrainable:
		n.model, err = reg.model(rec.Kind)
		op = n.model
	}
	if err != nil {
		return nil, err
	}
	if len(rec.State) > 0 {
		codec, ok := op.(StateCodec)
		if !ok {
			return nil, errors.InvalidArtifact(fmt.Sprintf("node %q carries state but kind %q cannot restore it", rec.Name, rec.Kind), nil)
		}
		if err := codec.UnmarshalState(rec.State); err != nil {
			return nil, errors.InvalidArtifact(fmt.Sprintf("unmarshal state of node %q", rec.Name), err)
		}
	}
	return n, nil
}

func resolveNodes(byID map[string]*Node, ids []string) ([]*Node, error) {
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			return nil, errors.InvalidArtifact(fmt.Sprintf("unknown node id %s", id), nil)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func roleFromString(s string) (Role, error) {
	switch s {
	case "input":
		return RoleInput, nil
	case "transform":
		return RoleTransform, nil
	case "metric":
		return RoleMetric, nil
	case "trainable":
		return RoleTrainable, nil
	default:
		return 0, errors.InvalidArtifact(fmt.Sprintf("unknown node role %q", s), nil)
	}
}
