// Package export writes finished draft snapshots somewhere durable. Exports
// are write-only: nothing here is ever loaded back into a live session.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/draft-bot/pkg/types"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

func Encode(snap types.Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(b, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

func Decode(data []byte, f Format) (types.Snapshot, error) {
	var snap types.Snapshot
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, &snap); err != nil {
			return snap, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return snap, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return snap, fmt.Errorf("unknown export format %q", f)
	}
	return snap, nil
}

// Exporter receives the snapshot of every draft that completes or is stopped.
type Exporter interface {
	Export(ctx context.Context, snap types.Snapshot) error
}

type ExporterFunc func(ctx context.Context, snap types.Snapshot) error

func (f ExporterFunc) Export(ctx context.Context, snap types.Snapshot) error { return f(ctx, snap) }

// Multi runs every exporter and reports all of their failures together.
type Multi []Exporter

func (m Multi) Export(ctx context.Context, snap types.Snapshot) error {
	var err error
	for _, e := range m {
		err = multierr.Append(err, e.Export(ctx, snap))
	}
	return err
}

// Nop discards snapshots; used when no export target is configured.
var Nop Exporter = ExporterFunc(func(context.Context, types.Snapshot) error { return nil })
