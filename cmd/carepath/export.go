package carepath

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/workspace"
)

// ExportCmd writes the export document of a persisted session to a local
// path or any afs URL (s3://, gs://).
type ExportCmd struct {
	SessionID string `short:"s" long:"session" description:"session id (default: latest)"`
	Dest      string `short:"o" long:"output" description:"destination URL (default: workspace exports/<id>.json)"`
	Token     string `long:"token" description:"access token (overrides the stored credential)"`
}

func (c *ExportCmd) Execute(_ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	r, err := hydrate(ctx, cfg, c.SessionID, c.Token)
	if err != nil {
		return err
	}
	dest, err := writeExport(ctx, afs.New(), r.Export(), c.Dest)
	if err != nil {
		return err
	}
	fmt.Println(dest)
	return nil
}

// writeExport uploads doc as indented JSON and returns the destination URL.
func writeExport(ctx context.Context, fs afs.Service, doc *session.Export, dest string) (string, error) {
	if strings.TrimSpace(dest) == "" {
		dest = filepath.Join(workspace.Path(workspace.KindExports), doc.SessionID+".json")
	} else {
		dest = workspace.ExpandUserHome(dest)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	if err := fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write export %v: %w", dest, err)
	}
	return dest, nil
}
