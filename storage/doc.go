// Package storage provides the persistence collaborators of a featflow
// pipeline.
//
// Two layers live here. Storage is an opaque blob interface
// (Upload/Download/Exists/Delete/List) with pluggable backends registered
// through RegisterFactory; the local filesystem backend ships in
// storage/local. FeatureStore sits on top of a Storage and implements the
// engine's write contract: one Write of the declared output mapping per
// successful transform/evaluate pass, keyed by a one-dimensional index, with
// bookkeeping (output names, dtypes, original shapes) recorded for the
// pipeline's persisted artifact.
package storage
