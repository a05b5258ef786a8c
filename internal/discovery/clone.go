package discovery

import (
	"context"
	"fmt"
	"io"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitCloner clones with go-git. HTTPS remotes authenticate with Token when
// it is set.
type GitCloner struct {
	Token    string
	Progress io.Writer
}

// Clone implements Cloner
func (c GitCloner) Clone(ctx context.Context, repoURL, dir string) error {
	opts := &git.CloneOptions{
		URL:      repoURL,
		Progress: c.Progress,
	}
	if c.Token != "" && strings.HasPrefix(strings.ToLower(repoURL), "https://") {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: c.Token}
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", repoURL, err)
	}
	return nil
}
