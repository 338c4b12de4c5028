package carepath

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// ListCmd prints persisted sessions, most recent first as returned by the
// session service.
type ListCmd struct {
	Token string `long:"token" description:"access token (overrides the stored credential)"`
}

func (c *ListCmd) Execute(_ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	client := newStore(cfg, newCredentials(cfg, c.Token))
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Title, s.UpdatedAt)
	}
	return w.Flush()
}
