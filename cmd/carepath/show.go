package carepath

import (
	"context"
	"fmt"
	"os"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/config"
)

// ShowCmd hydrates a persisted session offline and renders it.
type ShowCmd struct {
	SessionID string `short:"s" long:"session" description:"session id (default: latest)"`
	Token     string `long:"token" description:"access token (overrides the stored credential)"`
	Width     int    `short:"w" long:"width" description:"render width" default:"100"`
}

func (c *ShowCmd) Execute(_ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	r, err := hydrate(ctx, cfg, c.SessionID, c.Token)
	if err != nil {
		return err
	}
	out := newPrinter(os.Stdout, c.Width)
	view := r.View()
	fmt.Println(out.renderer.Sidebar(view))
	fmt.Println(out.renderer.Transcript(view))
	return nil
}

// hydrate loads a snapshot by id, or the latest one, into a reconciler that
// persists nothing.
func hydrate(ctx context.Context, cfg *config.Config, sessionID, token string) (*session.Reconciler, error) {
	client := newStore(cfg, newCredentials(cfg, token))
	var snap *session.Snapshot
	var err error
	if sessionID != "" {
		snap, err = client.GetSession(ctx, sessionID)
	} else {
		snap, err = client.LatestSession(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	r := session.NewReconciler(nil)
	if err := session.Hydrate(r, snap); err != nil {
		return nil, err
	}
	return r, nil
}
