package record

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"historydb/pkg/core"
)

// Record is one numbered run in a history. It is stored as record.yaml inside a
// directory named by its ID.
type Record struct {
	Number    int               `yaml:"number"`
	ID        string            `yaml:"-"`
	Status    string            `yaml:"status,omitempty"`
	StartedAt time.Time         `yaml:"started_at,omitempty"`
	Duration  time.Duration     `yaml:"duration,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`

	core.Links[Record] `yaml:"-"`
}

func NumberOf(r *Record) int { return r.Number }
func IDOf(r *Record) string  { return r.ID }

// HistoryLinks exposes the embedded neighbour links to core.NewLinker.
func (r *Record) HistoryLinks() *core.Links[Record] {
	return &r.Links
}

type document struct {
	Number    *int              `yaml:"number"`
	Status    string            `yaml:"status,omitempty"`
	StartedAt time.Time         `yaml:"started_at,omitempty"`
	Duration  time.Duration     `yaml:"duration,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// Parse decodes a record file read from the directory id. Blank input yields
// no record; a document without a number is an error.
func Parse(id string, data []byte) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse record %s", id)
	}
	if doc.Number == nil {
		return nil, errors.Errorf("record %s has no number", id)
	}
	return &Record{
		Number:    *doc.Number,
		ID:        id,
		Status:    doc.Status,
		StartedAt: doc.StartedAt,
		Duration:  doc.Duration,
		Labels:    doc.Labels,
	}, nil
}

func Marshal(r *Record) ([]byte, error) {
	n := r.Number
	out, err := yaml.Marshal(document{
		Number:    &n,
		Status:    r.Status,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Labels:    r.Labels,
	})
	return out, errors.Wrapf(err, "marshal record %s", r.ID)
}
