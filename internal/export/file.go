package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/pkg/types"
)

// FileExporter writes one file per draft: <dir>/<scope>-<session id>.<ext>.
type FileExporter struct {
	dir    string
	format Format
	log    *zap.Logger
}

func NewFileExporter(dir string, format Format, log *zap.Logger) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileExporter{dir: dir, format: format, log: log}, nil
}

// Path is where snap would be written.
func (e *FileExporter) Path(snap types.Snapshot) string {
	name := fmt.Sprintf("%s-%s.%s", safeName(snap.Scope), safeName(snap.SessionID), e.format.Ext())
	return filepath.Join(e.dir, name)
}

func (e *FileExporter) Export(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap, e.format)
	if err != nil {
		return err
	}

	path := e.Path(snap)
	tmp, err := os.CreateTemp(e.dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename export: %w", err)
	}

	e.log.Info("draft exported", zap.String("scope", snap.Scope), zap.String("path", path))
	return nil
}

func safeName(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
