package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"go.uber.org/zap"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// Auth carries version-control credentials for a single operation. It is
// supplied per call and never cached beyond the call's lifetime.
type Auth struct {
	Username         string // HTTPS basic auth user; defaults for token auth
	Password         string // HTTPS basic auth password
	Token            string // HTTPS access token
	SSHKeyPath       string // path to a private key for SSH remotes
	SSHKeyPassphrase string
}

// method converts the credentials to a go-git transport auth method.
func (a Auth) method() (transport.AuthMethod, error) {
	switch {
	case a.SSHKeyPath != "":
		keys, err := gitssh.NewPublicKeysFromFile("git", a.SSHKeyPath, a.SSHKeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: loading SSH key %s: %v", resource.ErrAuthentication, a.SSHKeyPath, err)
		}
		return keys, nil
	case a.Token != "":
		user := a.Username
		if user == "" {
			user = "x-access-token"
		}
		return &githttp.BasicAuth{Username: user, Password: a.Token}, nil
	case a.Username != "":
		return &githttp.BasicAuth{Username: a.Username, Password: a.Password}, nil
	}
	return nil, nil
}

// gitClient abstracts the go-git operations the syncer drives, so sync
// serialization can be tested without a remote.
type gitClient interface {
	// clone creates a shallow clone and returns the checked-out revision.
	clone(ctx context.Context, url, dir string, auth transport.AuthMethod) (string, error)
	// sync fast-forwards an existing clone and returns the new revision.
	sync(ctx context.Context, dir string, auth transport.AuthMethod) (string, error)
}

// Syncer manages one shallow local clone per remote URL under a private
// root. Clone creation and synchronization for a given URL are mutually
// exclusive: overlapping requests serialize on a per-URL lock, because a
// concurrent write during checkout would corrupt the working tree.
type Syncer struct {
	root   string
	client gitClient
	log    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSyncer creates a Syncer storing clones under root.
func NewSyncer(root string, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{root: root, client: goGitClient{}, log: log, locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the mutex owning all clone/sync work for one URL.
func (s *Syncer) lockFor(url string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[url]
	if !ok {
		l = &sync.Mutex{}
		s.locks[url] = l
	}
	return l
}

// CloneDir returns where the clone for a URL lives, whether or not it exists.
func (s *Syncer) CloneDir(url string) string {
	return filepath.Join(s.root, cloneDirKey(url))
}

// Ensure guarantees an up-to-date shallow clone of the remote and returns
// its directory and current revision. At most one Ensure per URL runs at a
// time; concurrent callers for the same URL wait rather than race.
func (s *Syncer) Ensure(ctx context.Context, url string, auth Auth) (dir, revision string, err error) {
	method, err := auth.method()
	if err != nil {
		return "", "", err
	}

	lock := s.lockFor(url)
	lock.Lock()
	defer lock.Unlock()

	dir = s.CloneDir(url)
	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr != nil {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return "", "", fmt.Errorf("%w: creating clone root: %v", resource.ErrIO, err)
		}
		s.log.Debug("cloning remote", zap.String("url", url), zap.String("dir", dir))
		revision, err = s.client.clone(ctx, url, dir, method)
		if err != nil {
			_ = os.RemoveAll(dir)
			return "", "", classifyGitError(url, err)
		}
		return dir, revision, nil
	}

	s.log.Debug("syncing clone", zap.String("url", url), zap.String("dir", dir))
	revision, err = s.client.sync(ctx, dir, method)
	if err != nil {
		return "", "", classifyGitError(url, err)
	}
	return dir, revision, nil
}

// goGitClient is the production gitClient built on go-git.
type goGitClient struct{}

func (goGitClient) clone(ctx context.Context, url, dir string, auth transport.AuthMethod) (string, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Auth:         auth,
	})
	if err != nil {
		return "", err
	}
	return headRevision(repo)
}

func (goGitClient) sync(ctx context.Context, dir string, auth transport.AuthMethod) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:   "origin",
		Depth:        1,
		SingleBranch: true,
		Auth:         auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", err
	}
	return headRevision(repo)
}

func headRevision(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

// classifyGitError maps go-git failures onto the error taxonomy. Diverged
// history is a conflict: the syncer fails rather than merges.
func classifyGitError(url string, err error) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %s: %v", resource.ErrAuthentication, url, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: repository %s", resource.ErrNotFound, url)
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return fmt.Errorf("%w: remote %s has diverged from the local clone", resource.ErrConflict, url)
	default:
		return fmt.Errorf("%w: syncing %s: %v", resource.ErrNetwork, url, err)
	}
}

// SourceKey derives the stable source identity for a remote URL, used as
// the cache sourceId: host and path joined with underscores.
// "git://example/repo.git" becomes "example_repo".
func SourceKey(url string) string {
	n := strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(url), "/"), ".git"))
	// SSH form: git@host:owner/repo
	if i := strings.Index(n, "@"); i >= 0 && !strings.Contains(n, "://") {
		n = n[i+1:]
		n = strings.Replace(n, ":", "/", 1)
	}
	if i := strings.Index(n, "://"); i >= 0 {
		n = n[i+3:]
	}
	parts := strings.FieldsFunc(n, func(r rune) bool { return r == '/' })
	key := strings.Join(parts, "_")
	if key == "" {
		return "repo"
	}
	return key
}

// cloneDirKey derives a unique, filesystem-safe clone directory name from a
// remote URL: the readable source key plus a short hash for uniqueness
// across URLs that normalize to the same key.
func cloneDirKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return SourceKey(url) + "-" + hex.EncodeToString(h[:4])
}
